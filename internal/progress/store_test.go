package progress

import (
	"testing"
	"time"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestTimestampStrictlyIncreasing(t *testing.T) {
	s := NewStore(WithClock(fixedClock(1000)))

	s.IncrementWrong(1)
	first := s.Timestamp()
	if first != 1000 {
		t.Fatalf("timestamp = %d, want 1000", first)
	}

	// Same wall clock: the timestamp must still advance.
	s.IncrementWrong(1)
	if got := s.Timestamp(); got <= first {
		t.Errorf("timestamp = %d, want > %d", got, first)
	}
}

func TestRecordIsolation(t *testing.T) {
	s := NewStore()

	rec := &entities.SpacedRepetitionRecord{Level: 2, SeenCount: 1}
	s.UpsertRecord(7, rec)
	rec.Level = 5 // must not leak into the store

	got := s.Record(7)
	if got.Level != 2 {
		t.Errorf("Level = %d, want 2", got.Level)
	}

	got.Level = 0 // and reads must not leak back
	if s.Record(7).Level != 2 {
		t.Error("returned record aliases store state")
	}

	if s.Record(99) != nil {
		t.Error("Record for unknown id should be nil")
	}
}

func TestDirtyHookFires(t *testing.T) {
	s := NewStore()

	calls := 0
	s.SetDirtyHook(func() { calls++ })

	s.IncrementWrong(1)
	s.AppendHistory(entities.HistoryEntry{Total: 10})
	s.SetFlag(3, true)
	s.UpsertRecord(4, &entities.SpacedRepetitionRecord{})

	if calls != 4 {
		t.Errorf("dirty hook fired %d times, want 4", calls)
	}
}

func TestExamHistoryEviction(t *testing.T) {
	s := NewStore()

	for i := 0; i < maxExamHistory+10; i++ {
		s.AppendExamHistory(entities.ExamHistoryRecord{Date: int64(i)})
	}

	got := s.ExamHistory()
	if len(got) != maxExamHistory {
		t.Fatalf("history length = %d, want %d", len(got), maxExamHistory)
	}
	// Oldest evicted first: the first surviving record is number 10.
	if got[0].Date != 10 {
		t.Errorf("oldest surviving record = %d, want 10", got[0].Date)
	}
	if got[len(got)-1].Date != int64(maxExamHistory+9) {
		t.Errorf("newest record = %d, want %d", got[len(got)-1].Date, maxExamHistory+9)
	}
}

func TestMetaRemovedWhenEmpty(t *testing.T) {
	s := NewStore()

	s.SetFlag(1, true)
	s.SetNote(1, "tricky")

	m := s.Meta(1)
	if !m.Flagged || m.Note != "tricky" {
		t.Fatalf("Meta = %+v", m)
	}

	s.SetFlag(1, false)
	if got := s.Meta(1); !got.Flagged && got.Note != "tricky" {
		t.Error("note must survive unflagging")
	}

	s.SetNote(1, "")
	if len(s.FlaggedQuestions()) != 0 {
		t.Error("no flagged questions expected")
	}
	if got := s.Meta(1); got != (entities.QuestionMeta{}) {
		t.Errorf("Meta = %+v, want zero", got)
	}
}

func TestSetExamsClearsCompletion(t *testing.T) {
	s := NewStore()

	s.SetExams([][]int{{1, 2}, {3, 4}})
	s.MarkExamCompleted(0, entities.ModeLearning)
	s.MarkExamCompleted(1, entities.ModeExam)

	if !s.IsExamCompleted(0, entities.ModeLearning) {
		t.Error("learning completion not recorded")
	}
	if !s.IsExamCompleted(1, entities.ModeExam) {
		t.Error("exam completion not recorded")
	}
	if s.IsExamCompleted(0, entities.ModeExam) {
		t.Error("modes must be tracked separately")
	}

	s.SetExams([][]int{{1, 2, 3, 4}})
	if s.IsExamCompleted(0, entities.ModeLearning) || s.IsExamCompleted(1, entities.ModeExam) {
		t.Error("SetExams must clear completion flags")
	}
}

func TestResetKeepsPartition(t *testing.T) {
	s := NewStore()

	s.SetExams([][]int{{1, 2}, {3}})
	s.UpsertRecord(1, &entities.SpacedRepetitionRecord{Level: 3, SeenCount: 2})
	s.IncrementWrong(1)
	s.AppendHistory(entities.HistoryEntry{Total: 2})
	s.AppendExamHistory(entities.ExamHistoryRecord{Total: 2})
	s.SetFlag(1, true)
	s.MarkExamCompleted(0, entities.ModeLearning)

	s.Reset()

	if len(s.Records()) != 0 {
		t.Error("records not cleared")
	}
	if s.WrongCount(1) != 0 {
		t.Error("wrong counts not cleared")
	}
	if len(s.History()) != 0 || len(s.ExamHistory()) != 0 {
		t.Error("history not cleared")
	}
	if len(s.FlaggedQuestions()) != 0 {
		t.Error("flags not cleared")
	}
	if s.IsExamCompleted(0, entities.ModeLearning) {
		t.Error("completion flags not cleared")
	}
	if len(s.Exams()) != 2 {
		t.Error("exam partition must survive a reset")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	s := NewStore(WithClock(fixedClock(5000)))

	s.SetExams([][]int{{1, 2}, {3}})
	s.UpsertRecord(1, &entities.SpacedRepetitionRecord{Level: 4, SeenCount: 6, LastSeenPosition: 12})
	s.IncrementWrong(3)
	s.IncrementWrong(3)
	s.AppendHistory(entities.HistoryEntry{Mode: string(entities.ModeLearning), Total: 3, Correct: 2, Percent: 66.7})
	s.AppendExamHistory(entities.ExamHistoryRecord{Total: 3, Correct: 2})
	s.SetNote(2, "check definitions")
	s.MarkExamCompleted(1, entities.ModeExam)

	doc := s.Document()

	other := NewStore()
	other.ApplyDocument(doc)

	if other.Timestamp() != s.Timestamp() {
		t.Errorf("timestamp = %d, want %d", other.Timestamp(), s.Timestamp())
	}
	if got := other.Record(1); got == nil || got.Level != 4 || got.SeenCount != 6 {
		t.Errorf("record = %+v", got)
	}
	if other.WrongCount(3) != 2 {
		t.Errorf("wrong count = %d, want 2", other.WrongCount(3))
	}
	if len(other.History()) != 1 || len(other.ExamHistory()) != 1 {
		t.Error("history missing after apply")
	}
	if other.Meta(2).Note != "check definitions" {
		t.Error("meta missing after apply")
	}
	if !other.IsExamCompleted(1, entities.ModeExam) {
		t.Error("completion missing after apply")
	}
	if len(other.Exams()) != 2 {
		t.Error("exam partition missing after apply")
	}
}

func TestDocumentShareNoState(t *testing.T) {
	s := NewStore()
	s.UpsertRecord(1, &entities.SpacedRepetitionRecord{Level: 1})

	doc := s.Document()
	doc.SpacedRepetition[1].Level = 5

	if s.Record(1).Level != 1 {
		t.Error("document aliases store state")
	}
}

func TestApplyDocumentPartial(t *testing.T) {
	s := NewStore()
	s.UpsertRecord(1, &entities.SpacedRepetitionRecord{Level: 2, SeenCount: 1})
	s.AppendHistory(entities.HistoryEntry{Total: 5})

	// Only wrong counts present: records and history stay untouched.
	s.ApplyDocument(&entities.ProgressDocument{
		Timestamp:   123,
		WrongCounts: map[int]int{9: 4},
	})

	if s.Timestamp() != 123 {
		t.Errorf("timestamp = %d, want 123", s.Timestamp())
	}
	if s.WrongCount(9) != 4 {
		t.Error("wrong counts not applied")
	}
	if got := s.Record(1); got == nil || got.Level != 2 {
		t.Error("absent field must not clear records")
	}
	if len(s.History()) != 1 {
		t.Error("absent field must not clear history")
	}
}

func TestApplyDocumentNoDirtyHook(t *testing.T) {
	s := NewStore()

	calls := 0
	s.SetDirtyHook(func() { calls++ })

	s.ApplyDocument(&entities.ProgressDocument{Timestamp: 1})
	if calls != 0 {
		t.Errorf("dirty hook fired %d times on ApplyDocument, want 0", calls)
	}
}
