package service

import (
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/repository"
)

var ErrUnknownExam = errors.New("unknown exam set")

// DefaultExamCount is the number of exam sets the bank is partitioned
// into.
const DefaultExamCount = 10

// ExamService partitions the question bank into disjoint near-equal
// exam sets and answers queries about them. The partition itself lives
// in the user's progress store so it syncs across devices.
type ExamService struct {
	repo      *repository.QuestionRepository
	logger    *zap.Logger
	rng       *rand.Rand
	examCount int
}

// NewExamService creates an exam service over the question bank.
func NewExamService(repo *repository.QuestionRepository, logger *zap.Logger, examCount int) *ExamService {
	if examCount <= 0 {
		examCount = DefaultExamCount
	}
	return &ExamService{
		repo:      repo,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		examCount: examCount,
	}
}

// Ensure generates the partition on first use; an existing partition is
// left untouched so completion flags survive restarts.
func (s *ExamService) Ensure(store *progress.Store) {
	if len(store.Exams()) > 0 {
		return
	}
	s.Regenerate(store)
}

// Regenerate builds a fresh partition: all question ids are shuffled
// and sliced into near-equal disjoint groups. Per-exam completion flags
// are reset by the store.
func (s *ExamService) Regenerate(store *progress.Store) {
	ids := s.repo.AllIDs()
	shuffled := make([]int, len(ids))
	copy(shuffled, ids)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	exams := make([][]int, 0, s.examCount)
	per := len(shuffled) / s.examCount
	extra := len(shuffled) % s.examCount
	offset := 0
	for i := 0; i < s.examCount; i++ {
		size := per
		if i < extra {
			size++
		}
		if size == 0 {
			continue
		}
		group := make([]int, size)
		copy(group, shuffled[offset:offset+size])
		exams = append(exams, group)
		offset += size
	}

	store.SetExams(exams)
	s.logger.Info("exam sets regenerated",
		zap.Int("sets", len(exams)),
		zap.Int("questions", len(shuffled)),
	)
}

// Questions returns the question ids of one exam set.
func (s *ExamService) Questions(store *progress.Store, index int) ([]int, error) {
	exams := store.Exams()
	if index < 0 || index >= len(exams) {
		return nil, ErrUnknownExam
	}
	return exams[index], nil
}

// Count returns the number of exam sets in the user's partition.
func (s *ExamService) Count(store *progress.Store) int {
	return len(store.Exams())
}
