package service

import (
	"sort"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/repository"
	"github.com/aliskhannn/exam-prep-bot/internal/round"
	"github.com/aliskhannn/exam-prep-bot/internal/scheduler"
)

// ProgressSummary aggregates everything the progress screen shows.
type ProgressSummary struct {
	Mastery      scheduler.Stats
	DueCount     int
	TotalRounds  int
	PassedRounds int
	AvgPercent   float64 // across all recorded rounds
	LastEntries  []entities.HistoryEntry
}

// WeakQuestion is a question ranked by accumulated wrong answers.
type WeakQuestion struct {
	QuestionID int
	WrongCount int
}

// StatsService derives read-only views from the progress store.
type StatsService struct {
	repo  *repository.QuestionRepository
	sched *scheduler.Scheduler
}

// NewStatsService creates a stats service.
func NewStatsService(repo *repository.QuestionRepository, sched *scheduler.Scheduler) *StatsService {
	return &StatsService{repo: repo, sched: sched}
}

// Summary builds the progress overview for one user.
func (s *StatsService) Summary(store *progress.Store) *ProgressSummary {
	universe := s.repo.AllIDs()
	records := store.Records()
	history := store.History()

	summary := &ProgressSummary{
		Mastery:     s.sched.Stats(records, universe),
		DueCount:    s.sched.DueCount(records, universe),
		TotalRounds: len(history),
	}

	var sum float64
	for _, entry := range history {
		sum += entry.Percent
		if round.IsPassed(entry.Correct, entry.Total) {
			summary.PassedRounds++
		}
	}
	if len(history) > 0 {
		summary.AvgPercent = sum / float64(len(history))
	}

	const lastN = 5
	if len(history) > lastN {
		history = history[len(history)-lastN:]
	}
	summary.LastEntries = history

	return summary
}

// WeakestQuestions ranks questions by global wrong count, most wrong
// first, and returns at most limit of them. Drives review-weak rounds.
func (s *StatsService) WeakestQuestions(store *progress.Store, limit int) []WeakQuestion {
	counts := store.WrongCounts()
	weak := make([]WeakQuestion, 0, len(counts))
	for id, n := range counts {
		if n > 0 {
			weak = append(weak, WeakQuestion{QuestionID: id, WrongCount: n})
		}
	}

	sort.Slice(weak, func(i, j int) bool {
		if weak[i].WrongCount != weak[j].WrongCount {
			return weak[i].WrongCount > weak[j].WrongCount
		}
		return weak[i].QuestionID < weak[j].QuestionID
	})

	if limit > 0 && len(weak) > limit {
		weak = weak[:limit]
	}
	return weak
}
