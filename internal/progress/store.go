// Package progress holds the per-profile progress store: spaced
// repetition records, round history, wrong-answer counts, flags and
// notes. The store is local-first: every operation works without any
// backing service, and the sync layer picks up changes through the
// dirty hook.
package progress

import (
	"sync"
	"time"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

// maxExamHistory bounds the detailed exam history; the oldest record is
// evicted first.
const maxExamHistory = 50

// Store is the single mutable resource shared between the scheduler,
// the round state machine and the sync reconciler. All methods are safe
// for concurrent use.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	timestamp         int64 // unix ms of the last local mutation
	spaced            map[int]*entities.SpacedRepetitionRecord
	history           []entities.HistoryEntry
	examHistory       []entities.ExamHistoryRecord
	wrongCounts       map[int]int
	meta              map[int]entities.QuestionMeta
	completedLearning map[int]struct{}
	completedExam     map[int]struct{}
	exams             [][]int

	onDirty func()
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, used in tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// NewStore creates an empty progress store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		clock:             time.Now,
		spaced:            make(map[int]*entities.SpacedRepetitionRecord),
		wrongCounts:       make(map[int]int),
		meta:              make(map[int]entities.QuestionMeta),
		completedLearning: make(map[int]struct{}),
		completedExam:     make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDirtyHook registers a callback invoked after every local mutation.
// The sync layer uses it to schedule a debounced write.
func (s *Store) SetDirtyHook(fn func()) {
	s.mu.Lock()
	s.onDirty = fn
	s.mu.Unlock()
}

// Timestamp returns the unix-ms timestamp of the last local mutation.
func (s *Store) Timestamp() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamp
}

// touchLocked bumps the mutation timestamp. The caller must hold the
// write lock. The timestamp is kept strictly increasing so that two
// rapid mutations never share one.
func (s *Store) touchLocked() {
	now := s.clock().UnixMilli()
	if now <= s.timestamp {
		now = s.timestamp + 1
	}
	s.timestamp = now
}

// notifyDirty invokes the dirty hook outside the lock.
func (s *Store) notifyDirty(fn func()) {
	if fn != nil {
		fn()
	}
}

// Record returns a copy of the spaced repetition record for a question,
// or nil if the question has never been encountered.
func (s *Store) Record(id int) *entities.SpacedRepetitionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.spaced[id]
	if !ok {
		return nil
	}
	return rec.Clone()
}

// Records returns a copy of all spaced repetition records.
func (s *Store) Records() map[int]*entities.SpacedRepetitionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]*entities.SpacedRepetitionRecord, len(s.spaced))
	for id, rec := range s.spaced {
		out[id] = rec.Clone()
	}
	return out
}

// UpsertRecord stores the spaced repetition record for a question.
func (s *Store) UpsertRecord(id int, rec *entities.SpacedRepetitionRecord) {
	s.mu.Lock()
	s.spaced[id] = rec.Clone()
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// IncrementWrong bumps the global wrong-answer counter for a question.
func (s *Store) IncrementWrong(id int) {
	s.mu.Lock()
	s.wrongCounts[id]++
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// WrongCount returns how many times a question has been answered
// incorrectly across all history.
func (s *Store) WrongCount(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wrongCounts[id]
}

// WrongCounts returns a copy of all wrong-answer counters.
func (s *Store) WrongCounts() map[int]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]int, len(s.wrongCounts))
	for id, n := range s.wrongCounts {
		out[id] = n
	}
	return out
}

// AppendHistory appends a completed base round summary.
func (s *Store) AppendHistory(entry entities.HistoryEntry) {
	s.mu.Lock()
	s.history = append(s.history, entry)
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// History returns a copy of all round summaries in insertion order.
func (s *Store) History() []entities.HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.HistoryEntry, len(s.history))
	copy(out, s.history)
	return out
}

// AppendExamHistory appends a detailed round record, evicting the
// oldest one once the bound is reached.
func (s *Store) AppendExamHistory(rec entities.ExamHistoryRecord) {
	s.mu.Lock()
	s.examHistory = append(s.examHistory, rec)
	if len(s.examHistory) > maxExamHistory {
		s.examHistory = s.examHistory[len(s.examHistory)-maxExamHistory:]
	}
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// ExamHistory returns a copy of the detailed round records.
func (s *Store) ExamHistory() []entities.ExamHistoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entities.ExamHistoryRecord, len(s.examHistory))
	copy(out, s.examHistory)
	return out
}

// SetFlag toggles the flagged mark on a question.
func (s *Store) SetFlag(id int, flagged bool) {
	s.mu.Lock()
	m := s.meta[id]
	m.Flagged = flagged
	if m.Flagged || m.Note != "" {
		s.meta[id] = m
	} else {
		delete(s.meta, id)
	}
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// SetNote stores the user's note for a question. An empty note together
// with an unset flag removes the entry entirely.
func (s *Store) SetNote(id int, note string) {
	s.mu.Lock()
	m := s.meta[id]
	m.Note = note
	if m.Flagged || m.Note != "" {
		s.meta[id] = m
	} else {
		delete(s.meta, id)
	}
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// Meta returns the flag and note for a question.
func (s *Store) Meta(id int) entities.QuestionMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[id]
}

// FlaggedQuestions returns the ids of all flagged questions.
func (s *Store) FlaggedQuestions() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int
	for id, m := range s.meta {
		if m.Flagged {
			ids = append(ids, id)
		}
	}
	return ids
}

// Exams returns a copy of the current exam-set partition.
func (s *Store) Exams() [][]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyExams(s.exams)
}

// SetExams replaces the exam-set partition and clears all per-exam
// completion flags.
func (s *Store) SetExams(exams [][]int) {
	s.mu.Lock()
	s.exams = copyExams(exams)
	s.completedLearning = make(map[int]struct{})
	s.completedExam = make(map[int]struct{})
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// MarkExamCompleted records that an exam set was finished in the given
// mode. Only learning and exam modes carry completion flags.
func (s *Store) MarkExamCompleted(index int, mode entities.Mode) {
	s.mu.Lock()
	switch mode {
	case entities.ModeExam:
		s.completedExam[index] = struct{}{}
	default:
		s.completedLearning[index] = struct{}{}
	}
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// IsExamCompleted reports whether the exam set was finished in the
// given mode.
func (s *Store) IsExamCompleted(index int, mode entities.Mode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mode == entities.ModeExam {
		_, ok := s.completedExam[index]
		return ok
	}
	_, ok := s.completedLearning[index]
	return ok
}

// Reset wipes all progress: records, history, counters, flags, exam
// completion. The exam partition itself is kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.spaced = make(map[int]*entities.SpacedRepetitionRecord)
	s.history = nil
	s.examHistory = nil
	s.wrongCounts = make(map[int]int)
	s.meta = make(map[int]entities.QuestionMeta)
	s.completedLearning = make(map[int]struct{})
	s.completedExam = make(map[int]struct{})
	s.touchLocked()
	fn := s.onDirty
	s.mu.Unlock()
	s.notifyDirty(fn)
}

// Document serialises the full store into the wire shape. The returned
// document shares no state with the store.
func (s *Store) Document() *entities.ProgressDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := &entities.ProgressDocument{
		Timestamp:         s.timestamp,
		CompletedLearning: setToSlice(s.completedLearning),
		CompletedExam:     setToSlice(s.completedExam),
		History:           make([]entities.HistoryEntry, len(s.history)),
		WrongCounts:       make(map[int]int, len(s.wrongCounts)),
		Exams:             copyExams(s.exams),
		QuestionMeta:      make(map[int]entities.QuestionMeta, len(s.meta)),
		SpacedRepetition:  make(map[int]*entities.SpacedRepetitionRecord, len(s.spaced)),
		ExamHistory:       make([]entities.ExamHistoryRecord, len(s.examHistory)),
	}
	copy(doc.History, s.history)
	copy(doc.ExamHistory, s.examHistory)
	for id, n := range s.wrongCounts {
		doc.WrongCounts[id] = n
	}
	for id, m := range s.meta {
		doc.QuestionMeta[id] = m
	}
	for id, rec := range s.spaced {
		doc.SpacedRepetition[id] = rec.Clone()
	}
	return doc
}

// ApplyDocument replaces store state from an inbound document. Only
// fields present in the document (non-nil) are replaced, and each is
// swapped wholesale so no reader ever observes a half-merged state.
// The store timestamp is set to the document's timestamp and the dirty
// hook is deliberately not invoked: applying a remote snapshot must not
// trigger another outbound write.
func (s *Store) ApplyDocument(doc *entities.ProgressDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.SpacedRepetition != nil {
		spaced := make(map[int]*entities.SpacedRepetitionRecord, len(doc.SpacedRepetition))
		for id, rec := range doc.SpacedRepetition {
			spaced[id] = rec.Clone()
		}
		s.spaced = spaced
	}
	if doc.History != nil {
		history := make([]entities.HistoryEntry, len(doc.History))
		copy(history, doc.History)
		s.history = history
	}
	if doc.ExamHistory != nil {
		examHistory := make([]entities.ExamHistoryRecord, len(doc.ExamHistory))
		copy(examHistory, doc.ExamHistory)
		if len(examHistory) > maxExamHistory {
			examHistory = examHistory[len(examHistory)-maxExamHistory:]
		}
		s.examHistory = examHistory
	}
	if doc.WrongCounts != nil {
		counts := make(map[int]int, len(doc.WrongCounts))
		for id, n := range doc.WrongCounts {
			counts[id] = n
		}
		s.wrongCounts = counts
	}
	if doc.QuestionMeta != nil {
		meta := make(map[int]entities.QuestionMeta, len(doc.QuestionMeta))
		for id, m := range doc.QuestionMeta {
			meta[id] = m
		}
		s.meta = meta
	}
	if doc.CompletedLearning != nil {
		s.completedLearning = sliceToSet(doc.CompletedLearning)
	}
	if doc.CompletedExam != nil {
		s.completedExam = sliceToSet(doc.CompletedExam)
	}
	if doc.Exams != nil {
		s.exams = copyExams(doc.Exams)
	}
	s.timestamp = doc.Timestamp
}

func copyExams(exams [][]int) [][]int {
	if exams == nil {
		return nil
	}
	out := make([][]int, len(exams))
	for i, group := range exams {
		out[i] = make([]int, len(group))
		copy(out[i], group)
	}
	return out
}

func setToSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

func sliceToSet(vals []int) map[int]struct{} {
	set := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}
