// Package scheduler implements the adaptive spaced-repetition engine:
// it scores every question by urgency and builds the ordered queue for
// the next adaptive session.
package scheduler

import (
	"math/rand"
	"sort"
	"time"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

// Default scheduling parameters.
const (
	DefaultSessionSize = 30
	neverSeenBase      = -1000.0 // never-seen questions always surface first
	neverSeenJitter    = 10.0    // randomises relative order among never-seen
	levelPenalty       = 5.0     // each level pushes a question further back
)

// defaultIntervals maps level 0..5 to the number of reviews until the
// question is due again.
var defaultIntervals = [entities.MaxLevel + 1]int{2, 4, 8, 15, 25, 50}

// Config holds scheduling parameters.
type Config struct {
	SessionSize  int                        // questions per adaptive session
	Intervals    [entities.MaxLevel + 1]int // reviews-until-due per level
	LevelPenalty float64                    // score penalty per mastery level
}

// DefaultConfig returns the standard scheduling parameters.
func DefaultConfig() Config {
	return Config{
		SessionSize:  DefaultSessionSize,
		Intervals:    defaultIntervals,
		LevelPenalty: levelPenalty,
	}
}

// Scheduler computes adaptive session queues from spaced repetition
// records. The random source and clock are injectable so session
// composition can be replayed deterministically in tests.
type Scheduler struct {
	cfg Config
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRand overrides the random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Scheduler) { s.rng = rng }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a Scheduler with the given config.
func New(cfg Config, opts ...Option) *Scheduler {
	if cfg.SessionSize <= 0 {
		cfg.SessionSize = DefaultSessionSize
	}
	if cfg.LevelPenalty == 0 {
		cfg.LevelPenalty = levelPenalty
	}
	var zero [entities.MaxLevel + 1]int
	if cfg.Intervals == zero {
		cfg.Intervals = defaultIntervals
	}
	s := &Scheduler{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IntervalForLevel returns the reviews-until-due interval for a level.
// Out-of-range levels get the highest configured interval, treating
// corrupt data as mastered-safe.
func (s *Scheduler) IntervalForLevel(level int) int {
	if level < entities.MinLevel || level > entities.MaxLevel {
		return s.cfg.Intervals[entities.MaxLevel]
	}
	return s.cfg.Intervals[level]
}

// CurrentPosition derives the global review position from the records:
// the total number of reviews performed so far. Positions assigned to
// questions within a session continue from this value.
func CurrentPosition(records map[int]*entities.SpacedRepetitionRecord) int {
	pos := 0
	for _, rec := range records {
		pos += rec.SeenCount
	}
	return pos
}

// Score computes the priority score for one question; lower means more
// urgent. Never-seen questions get a strongly negative base plus random
// jitter so they always surface first in randomised relative order.
func (s *Scheduler) Score(rec *entities.SpacedRepetitionRecord, position int) float64 {
	if rec == nil || rec.SeenCount == 0 {
		return neverSeenBase + s.rng.Float64()*neverSeenJitter
	}
	overdue := float64(position-rec.LastSeenPosition) - float64(s.IntervalForLevel(rec.Level))
	return overdue - float64(rec.Level)*s.cfg.LevelPenalty
}

// BuildSession scores every question in the universe, picks the most
// urgent SessionSize of them and orders the pick by tier: urgent
// questions first, then moderate, then review, with the order inside
// each tier shuffled independently.
func (s *Scheduler) BuildSession(records map[int]*entities.SpacedRepetitionRecord, universe []int) []int {
	if len(universe) == 0 {
		return nil
	}

	position := CurrentPosition(records)

	type scored struct {
		id    int
		score float64
	}
	all := make([]scored, 0, len(universe))
	for _, id := range universe {
		all = append(all, scored{id: id, score: s.Score(records[id], position)})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score < all[j].score })

	n := s.cfg.SessionSize
	if n > len(all) {
		n = len(all)
	}

	var urgent, moderate, review []int
	for _, sc := range all[:n] {
		rec := records[sc.id]
		switch {
		case rec == nil || rec.SeenCount == 0 || rec.Level <= 1:
			urgent = append(urgent, sc.id)
		case rec.Level <= 3:
			moderate = append(moderate, sc.id)
		default:
			review = append(review, sc.id)
		}
	}

	s.shuffle(urgent)
	s.shuffle(moderate)
	s.shuffle(review)

	session := make([]int, 0, n)
	session = append(session, urgent...)
	session = append(session, moderate...)
	session = append(session, review...)
	return session
}

func (s *Scheduler) shuffle(ids []int) {
	s.rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
}

// ApplyOutcome updates a spaced repetition record after one answered
// question: +2 for a confident correct answer, +1 for a correct answer
// marked not-sure, -2 for an incorrect answer regardless of flags, with
// the level clamped to [0,5].
func (s *Scheduler) ApplyOutcome(rec *entities.SpacedRepetitionRecord, correct, notSure bool, position int) *entities.SpacedRepetitionRecord {
	if rec == nil {
		rec = &entities.SpacedRepetitionRecord{}
	} else {
		rec = rec.Clone()
	}

	delta := -2
	if correct {
		delta = 2
		if notSure {
			delta = 1
		}
	}

	rec.Level = clampLevel(rec.Level + delta)
	rec.SeenCount++
	rec.LastSeen = s.now().UnixMilli()
	rec.LastSeenPosition = position
	return rec
}

func clampLevel(level int) int {
	if level < entities.MinLevel {
		return entities.MinLevel
	}
	if level > entities.MaxLevel {
		return entities.MaxLevel
	}
	return level
}

// Stats is the mastery breakdown of the whole question universe. The
// four buckets partition the universe exactly.
type Stats struct {
	Mastered   int // level >= 4, seen at least once
	Learning   int // level 1..3, seen at least once
	Struggling int // level 0, seen at least once
	NotStarted int // never seen
}

// Total returns the sum of all buckets.
func (st Stats) Total() int {
	return st.Mastered + st.Learning + st.Struggling + st.NotStarted
}

// Stats buckets every question in the universe by mastery.
func (s *Scheduler) Stats(records map[int]*entities.SpacedRepetitionRecord, universe []int) Stats {
	var st Stats
	for _, id := range universe {
		rec := records[id]
		switch {
		case rec == nil || rec.SeenCount == 0:
			st.NotStarted++
		case rec.Level >= 4:
			st.Mastered++
		case rec.Level >= 1:
			st.Learning++
		default:
			st.Struggling++
		}
	}
	return st
}

// DueCount returns how many seen questions are currently overdue. Used
// by the reminder service.
func (s *Scheduler) DueCount(records map[int]*entities.SpacedRepetitionRecord, universe []int) int {
	position := CurrentPosition(records)
	due := 0
	for _, id := range universe {
		rec := records[id]
		if rec == nil || rec.SeenCount == 0 {
			continue
		}
		if position-rec.LastSeenPosition >= s.IntervalForLevel(rec.Level) {
			due++
		}
	}
	return due
}
