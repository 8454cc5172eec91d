// Package round implements the practice-round state machine: question
// sequencing, draft-answer capture, checking, confidence flags, timing
// and completion, plus review sub-rounds derived from the completed
// base round.
package round

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/mohae/deepcopy"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/scheduler"
)

// PassThresholdPercent is the minimum percentage of correct answers for
// a round to count as passed.
const PassThresholdPercent = 72.0

var ErrNoActiveRound = errors.New("no active round")

// State is the lifecycle state of the machine.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// QuestionSource provides question content by id.
type QuestionSource interface {
	ByID(id int) (*entities.Question, error)
}

// AdvanceResult reports what a single Advance call did.
type AdvanceResult struct {
	Checked   bool // the current answer was checked on this call
	Moved     bool // moved on to the next question
	Completed bool // the round finished on this call
}

// Stats summarises a round's outcome.
type Stats struct {
	Total      int
	Correct    int
	Wrong      []int // ids answered incorrectly
	Percent    float64
	AvgTimeSec float64
}

// IsPassed reports whether correct out of total clears the pass
// threshold.
func IsPassed(correct, total int) bool {
	if total == 0 {
		return false
	}
	return float64(correct)/float64(total)*100 >= PassThresholdPercent
}

// Machine drives one user's practice rounds. Exactly one round is
// current at a time; starting a new one discards the previous round's
// transient state. The base round's full question-state snapshot is
// preserved before any review sub-round starts, so the machine can
// always return to the original base results.
type Machine struct {
	repo   QuestionSource
	store  *progress.Store
	sched  *scheduler.Scheduler
	logger *zap.Logger
	rng    *rand.Rand
	clock  func() time.Time

	mu         sync.Mutex
	state      State
	generation int // bumped on every Start; stale countdowns carry an older value
	roundType  entities.RoundType
	mode       entities.Mode
	stack      []int
	index      int
	states     map[int]*entities.QuestionState
	orders     map[int][]string
	examIndex  int // originating exam-set index, -1 when none

	basePos  int // global review position when the round started
	answered int // spaced-repetition updates applied so far this round

	questionStart time.Time
	deadline      time.Time
	examClock     *time.Timer

	baseStates map[int]*entities.QuestionState
	baseStack  []int
	baseMode   entities.Mode
}

// Option configures a Machine.
type Option func(*Machine)

// WithRand overrides the random source used for answer-order shuffles.
func WithRand(rng *rand.Rand) Option {
	return func(m *Machine) { m.rng = rng }
}

// WithClock overrides the wall clock.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) { m.clock = clock }
}

// NewMachine creates an idle round machine.
func NewMachine(repo QuestionSource, store *progress.Store, sched *scheduler.Scheduler, logger *zap.Logger, opts ...Option) *Machine {
	m := &Machine{
		repo:      repo,
		store:     store,
		sched:     sched,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:     time.Now,
		state:     StateIdle,
		examIndex: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartOptions carries optional parameters for Start.
type StartOptions struct {
	ExamIndex int           // originating exam-set index, -1 when none
	Duration  time.Duration // exam countdown, 0 = untimed
	OnExpire  func()        // invoked when the countdown fires
}

// Start begins a new round over the given question ids. It returns
// false without changing state if ids is empty. Any previous
// in-progress round's transient state is discarded and its countdown
// stopped.
func (m *Machine) Start(typ entities.RoundType, mode entities.Mode, ids []int, opts StartOptions) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(ids) == 0 {
		return false
	}

	m.stopClockLocked()
	m.generation++

	m.state = StateInProgress
	m.roundType = typ
	m.mode = mode
	m.stack = make([]int, len(ids))
	copy(m.stack, ids)
	m.index = 0
	m.states = make(map[int]*entities.QuestionState, len(ids))
	m.orders = make(map[int][]string, len(ids))
	m.examIndex = opts.ExamIndex
	m.basePos = scheduler.CurrentPosition(m.store.Records())
	m.answered = 0
	m.questionStart = m.clock()
	m.deadline = time.Time{}

	if mode == entities.ModeExam && opts.Duration > 0 {
		m.deadline = m.clock().Add(opts.Duration)
		gen := m.generation
		onExpire := opts.OnExpire
		m.examClock = time.AfterFunc(opts.Duration, func() {
			if m.expire(gen) && onExpire != nil {
				onExpire()
			}
		})
	}

	m.logger.Info("round started",
		zap.String("type", string(typ)),
		zap.String("mode", string(mode)),
		zap.Int("questions", len(ids)),
	)
	return true
}

// stopClockLocked stops a running exam countdown. A leaked clock across
// round transitions is a defect.
func (m *Machine) stopClockLocked() {
	if m.examClock != nil {
		m.examClock.Stop()
		m.examClock = nil
	}
}

// RoundState returns the machine lifecycle state.
func (m *Machine) RoundState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RoundType returns the current round's type.
func (m *Machine) RoundType() entities.RoundType {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roundType
}

// Mode returns the current round's mode.
func (m *Machine) Mode() entities.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Position returns the current question index and the stack length.
func (m *Machine) Position() (index, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index, len(m.stack)
}

// TimeLeft returns the remaining exam time, or zero for untimed rounds.
func (m *Machine) TimeLeft() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deadline.IsZero() {
		return 0
	}
	left := m.deadline.Sub(m.clock())
	if left < 0 {
		return 0
	}
	return left
}

// CurrentQuestionID returns the id of the question at the current
// index.
func (m *Machine) CurrentQuestionID() (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress || m.index >= len(m.stack) {
		return 0, false
	}
	return m.stack[m.index], true
}

// CurrentQuestion returns the content of the current question.
func (m *Machine) CurrentQuestion() (*entities.Question, error) {
	id, ok := m.CurrentQuestionID()
	if !ok {
		return nil, ErrNoActiveRound
	}
	return m.repo.ByID(id)
}

// CurrentState returns a copy of the current question's state, creating
// it lazily on first access.
func (m *Machine) CurrentState() (entities.QuestionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress || m.index >= len(m.stack) {
		return entities.QuestionState{}, false
	}
	st := m.ensureStateLocked(m.stack[m.index])
	return *st, true
}

// StateFor returns a copy of the state for a specific question id.
func (m *Machine) StateFor(id int) (entities.QuestionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		return entities.QuestionState{}, false
	}
	return *st, true
}

func (m *Machine) ensureStateLocked(id int) *entities.QuestionState {
	st, ok := m.states[id]
	if !ok {
		st = &entities.QuestionState{Status: entities.StatusUnanswered}
		m.states[id] = st
	}
	return st
}

// AnswerOrder returns the fixed random permutation of the question's
// answer letters for this round. It is generated once on first display
// and held until the round ends, so review navigation stays consistent
// with what the user already saw.
func (m *Machine) AnswerOrder(id int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.orders[id]; ok {
		out := make([]string, len(order))
		copy(out, order)
		return out, nil
	}
	q, err := m.repo.ByID(id)
	if err != nil {
		return nil, err
	}
	order := q.AnswerLetters()
	m.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	m.orders[id] = order
	out := make([]string, len(order))
	copy(out, order)
	return out, nil
}

// UpdateDraft mutates the current question's draft state without
// scoring. In immediate-feedback modes a question with a terminal
// status can no longer be edited; the update is ignored.
func (m *Machine) UpdateDraft(selected string, dontKnow, notSure bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress || m.index >= len(m.stack) {
		return false
	}
	st := m.ensureStateLocked(m.stack[m.index])
	if m.mode.Immediate() && st.Terminal() {
		return false
	}
	st.SelectedAnswer = selected
	st.DontKnow = dontKnow
	st.NotSure = notSure
	return true
}

// Check scores the current question against its correct letters. It is
// a no-op returning false when no answer is selected. An incorrect
// answer increments the question's global wrong count once per pass.
func (m *Machine) Check(selected string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkLocked(selected)
}

func (m *Machine) checkLocked(selected string) bool {
	if m.state != StateInProgress || m.index >= len(m.stack) {
		return false
	}
	if selected == "" {
		return false
	}

	id := m.stack[m.index]
	q, err := m.repo.ByID(id)
	if err != nil {
		m.logger.Error("check: question lookup failed", zap.Int("question_id", id), zap.Error(err))
		return false
	}

	st := m.ensureStateLocked(id)
	correct := q.IsCorrectLetter(selected)
	prev := st.Status

	st.SelectedAnswer = selected
	if correct {
		st.Status = entities.StatusCorrect
	} else {
		st.Status = entities.StatusWrong
	}

	now := m.clock()
	st.TimeSpentSec += int(now.Sub(m.questionStart).Seconds())
	m.questionStart = now

	if !correct && prev != entities.StatusWrong {
		m.store.IncrementWrong(id)
	}

	// Immediate-feedback flows update mastery per question; exam
	// rounds defer updates to completion.
	if m.mode.Immediate() && prev == entities.StatusUnanswered {
		m.applyOutcomeLocked(id, correct, st.NotSure)
	}
	return true
}

func (m *Machine) applyOutcomeLocked(id int, correct, notSure bool) {
	rec := m.store.Record(id)
	updated := m.sched.ApplyOutcome(rec, correct, notSure, m.basePos+m.answered)
	m.answered++
	m.store.UpsertRecord(id, updated)
}

// Advance is the main sequencing operation. In immediate-feedback modes
// the first call on an unanswered question checks it and reveals the
// result without moving; the next call moves forward. In exam mode
// checking and moving happen together. Passing the last question
// completes the round.
func (m *Machine) Advance(selected string) AdvanceResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res AdvanceResult
	if m.state != StateInProgress || m.index >= len(m.stack) {
		return res
	}

	st := m.ensureStateLocked(m.stack[m.index])

	if m.mode.Immediate() {
		if !st.Terminal() {
			res.Checked = m.checkLocked(selected)
			return res
		}
	} else {
		res.Checked = m.checkLocked(selected)
	}

	if m.index+1 < len(m.stack) {
		m.index++
		m.questionStart = m.clock()
		res.Moved = true
		return res
	}

	m.completeLocked()
	res.Completed = true
	return res
}

// Retreat moves to the previous question. It is a no-op at the first
// question and never re-runs checking.
func (m *Machine) Retreat() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress || m.index == 0 {
		return false
	}
	m.index--
	m.questionStart = m.clock()
	return true
}

// Expire force-completes the current in-progress round.
func (m *Machine) Expire() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInProgress {
		return
	}
	m.logger.Info("exam time expired")
	m.completeLocked()
}

// expire completes the round whose countdown fired. Stop cannot help
// once AfterFunc has fired and is waiting on the mutex, so a countdown
// whose round was replaced in the meantime finds a newer generation
// here and must do nothing.
func (m *Machine) expire(generation int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if generation != m.generation || m.state != StateInProgress {
		return false
	}
	m.logger.Info("exam time expired")
	m.completeLocked()
	return true
}

// Exit abandons the current round, discarding its transient state and
// stopping any running countdown. The base snapshot is kept.
func (m *Machine) Exit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopClockLocked()
	m.state = StateIdle
	m.stack = nil
	m.states = nil
	m.orders = nil
	m.index = 0
}

// completeLocked finishes the round. Only a base round writes history,
// records per-question detail, marks the originating exam set and
// snapshots the question states for review branching; review sub-rounds
// never inflate exam statistics.
func (m *Machine) completeLocked() {
	m.stopClockLocked()
	m.state = StateCompleted

	// Exam rounds apply deferred mastery updates for every answered
	// question, in stack order.
	if !m.mode.Immediate() {
		for _, id := range m.stack {
			st, ok := m.states[id]
			if !ok || !st.Terminal() {
				continue
			}
			m.applyOutcomeLocked(id, st.Status == entities.StatusCorrect, st.NotSure)
		}
	}

	if m.roundType != entities.RoundBase {
		m.logger.Info("review round completed", zap.String("type", string(m.roundType)))
		return
	}

	stats := m.statsLocked()
	now := m.clock().UnixMilli()

	m.store.AppendHistory(entities.HistoryEntry{
		Date:       now,
		Mode:       string(m.mode),
		Total:      stats.Total,
		Correct:    stats.Correct,
		Percent:    stats.Percent,
		AvgTimeSec: stats.AvgTimeSec,
	})

	results := make([]entities.ExamQuestionResult, 0, len(m.stack))
	for _, id := range m.stack {
		st := m.states[id]
		r := entities.ExamQuestionResult{QuestionID: id}
		if st != nil {
			r.Selected = st.SelectedAnswer
			r.Correct = st.Status == entities.StatusCorrect
		}
		results = append(results, r)
	}
	m.store.AppendExamHistory(entities.ExamHistoryRecord{
		Date:    now,
		Mode:    string(m.mode),
		Total:   stats.Total,
		Correct: stats.Correct,
		Results: results,
	})

	if m.examIndex >= 0 {
		m.store.MarkExamCompleted(m.examIndex, m.mode)
	}

	// Snapshot the base round exactly once; review sub-rounds read but
	// never overwrite it. Deep copy so later mutation of the live state
	// map cannot leak into the snapshot.
	m.baseStates = deepcopy.Copy(m.states).(map[int]*entities.QuestionState)
	m.baseStack = make([]int, len(m.stack))
	copy(m.baseStack, m.stack)
	m.baseMode = m.mode

	m.logger.Info("base round completed",
		zap.Int("total", stats.Total),
		zap.Int("correct", stats.Correct),
		zap.Float64("percent", stats.Percent),
	)
}

// ComputeStats returns the outcome summary of the current round.
func (m *Machine) ComputeStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsLocked()
}

func (m *Machine) statsLocked() Stats {
	stats := Stats{Total: len(m.stack)}
	totalTime := 0
	for _, id := range m.stack {
		st, ok := m.states[id]
		if !ok {
			continue
		}
		totalTime += st.TimeSpentSec
		switch st.Status {
		case entities.StatusCorrect:
			stats.Correct++
		case entities.StatusWrong:
			stats.Wrong = append(stats.Wrong, id)
		}
	}
	if stats.Total > 0 {
		stats.Percent = float64(stats.Correct) / float64(stats.Total) * 100
		stats.AvgTimeSec = float64(totalTime) / float64(stats.Total)
	}
	return stats
}

// HasBaseSnapshot reports whether a completed base round is available
// for review branching.
func (m *Machine) HasBaseSnapshot() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseStates != nil
}

// BaseStats returns the outcome summary of the snapshotted base round,
// regardless of how many review sub-rounds ran since.
func (m *Machine) BaseStats() (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseStates == nil {
		return Stats{}, false
	}
	stats := Stats{Total: len(m.baseStack)}
	totalTime := 0
	for _, id := range m.baseStack {
		st, ok := m.baseStates[id]
		if !ok {
			continue
		}
		totalTime += st.TimeSpentSec
		switch st.Status {
		case entities.StatusCorrect:
			stats.Correct++
		case entities.StatusWrong:
			stats.Wrong = append(stats.Wrong, id)
		}
	}
	if stats.Total > 0 {
		stats.Percent = float64(stats.Correct) / float64(stats.Total) * 100
		stats.AvgTimeSec = float64(totalTime) / float64(stats.Total)
	}
	return stats, true
}

// BaseMode returns the mode of the snapshotted base round.
func (m *Machine) BaseMode() (entities.Mode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseStates == nil {
		return "", false
	}
	return m.baseMode, true
}

// ReviewSet derives the question subset for a review sub-round from the
// base snapshot: wrong answers, not-sure flags, don't-know flags, or
// the deduplicated union of the three. Without a snapshot the set is
// empty and no round must be started from it.
func (m *Machine) ReviewSet(typ entities.RoundType) []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseStates == nil {
		return nil
	}

	var ids []int
	seen := make(map[int]struct{})
	add := func(id int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range m.baseStack {
		st, ok := m.baseStates[id]
		if !ok {
			continue
		}
		switch typ {
		case entities.RoundReviewWrong:
			if st.Status == entities.StatusWrong {
				add(id)
			}
		case entities.RoundReviewNotSure:
			if st.NotSure {
				add(id)
			}
		case entities.RoundReviewDontKnow:
			if st.DontKnow {
				add(id)
			}
		case entities.RoundReviewAll:
			if st.Status == entities.StatusWrong || st.NotSure || st.DontKnow {
				add(id)
			}
		}
	}
	return ids
}
