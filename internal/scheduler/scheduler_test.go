package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

func newTestScheduler(cfg Config) *Scheduler {
	return New(cfg,
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) }),
	)
}

func TestIntervalForLevel(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	tests := []struct {
		level int
		want  int
	}{
		{0, 2},
		{1, 4},
		{2, 8},
		{3, 15},
		{4, 25},
		{5, 50},
		{-1, 50}, // out of range falls back to the highest interval
		{9, 50},
	}
	for _, tt := range tests {
		if got := s.IntervalForLevel(tt.level); got != tt.want {
			t.Errorf("IntervalForLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestScoreNeverSeen(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	for i := 0; i < 100; i++ {
		score := s.Score(nil, 500)
		if score < neverSeenBase || score >= neverSeenBase+neverSeenJitter {
			t.Fatalf("never-seen score %f outside [%f, %f)", score, neverSeenBase, neverSeenBase+neverSeenJitter)
		}
	}

	// A zero SeenCount record counts as never seen too.
	rec := &entities.SpacedRepetitionRecord{Level: 3}
	if score := s.Score(rec, 500); score >= neverSeenBase+neverSeenJitter {
		t.Errorf("zero SeenCount score = %f, want never-seen range", score)
	}
}

func TestScoreSeen(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	rec := &entities.SpacedRepetitionRecord{Level: 2, SeenCount: 3, LastSeenPosition: 10}
	// overdue = (30-10) - 8 = 12, penalty = 2*5 = 10.
	if got := s.Score(rec, 30); got != 2 {
		t.Errorf("Score = %f, want 2", got)
	}

	// Higher level means less urgent at the same overdue distance.
	low := &entities.SpacedRepetitionRecord{Level: 0, SeenCount: 1, LastSeenPosition: 10}
	high := &entities.SpacedRepetitionRecord{Level: 5, SeenCount: 1, LastSeenPosition: 10}
	if s.Score(low, 100) >= s.Score(high, 100) {
		t.Error("level 0 should score more urgent than level 5")
	}
}

func TestCurrentPosition(t *testing.T) {
	records := map[int]*entities.SpacedRepetitionRecord{
		1: {SeenCount: 3},
		2: {SeenCount: 0},
		3: {SeenCount: 7},
	}
	if got := CurrentPosition(records); got != 10 {
		t.Errorf("CurrentPosition = %d, want 10", got)
	}
	if got := CurrentPosition(nil); got != 0 {
		t.Errorf("CurrentPosition(nil) = %d, want 0", got)
	}
}

func TestBuildSessionEmptyUniverse(t *testing.T) {
	s := newTestScheduler(DefaultConfig())
	if got := s.BuildSession(nil, nil); got != nil {
		t.Errorf("BuildSession over empty universe = %v, want nil", got)
	}
}

func TestBuildSessionSizeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionSize = 5
	s := newTestScheduler(cfg)

	universe := make([]int, 20)
	for i := range universe {
		universe[i] = i + 1
	}

	session := s.BuildSession(nil, universe)
	if len(session) != 5 {
		t.Fatalf("session size = %d, want 5", len(session))
	}

	seen := make(map[int]bool)
	for _, id := range session {
		if seen[id] {
			t.Errorf("duplicate id %d in session", id)
		}
		seen[id] = true
	}
}

func TestBuildSessionTierOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionSize = 6
	s := newTestScheduler(cfg)

	// Everything heavily overdue so all six are picked; tiers must
	// still come out urgent, moderate, review.
	records := map[int]*entities.SpacedRepetitionRecord{
		1: {Level: 0, SeenCount: 1, LastSeenPosition: 0}, // urgent
		2: {Level: 1, SeenCount: 1, LastSeenPosition: 0}, // urgent
		3: {Level: 2, SeenCount: 1, LastSeenPosition: 0}, // moderate
		4: {Level: 3, SeenCount: 1, LastSeenPosition: 0}, // moderate
		5: {Level: 4, SeenCount: 1, LastSeenPosition: 0}, // review
		6: {Level: 5, SeenCount: 1, LastSeenPosition: 0}, // review
	}
	universe := []int{1, 2, 3, 4, 5, 6}

	session := s.BuildSession(records, universe)
	if len(session) != 6 {
		t.Fatalf("session size = %d, want 6", len(session))
	}

	tier := func(id int) int {
		switch records[id].Level {
		case 0, 1:
			return 0
		case 2, 3:
			return 1
		default:
			return 2
		}
	}
	for i := 1; i < len(session); i++ {
		if tier(session[i]) < tier(session[i-1]) {
			t.Fatalf("tier order violated: %v", session)
		}
	}
}

func TestBuildSessionNeverSeenFirst(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionSize = 3
	s := newTestScheduler(cfg)

	// Two barely-due seen questions and one never-seen; the never-seen
	// one must always make the cut.
	records := map[int]*entities.SpacedRepetitionRecord{
		1: {Level: 2, SeenCount: 1, LastSeenPosition: 0},
		2: {Level: 2, SeenCount: 1, LastSeenPosition: 0},
		3: {Level: 2, SeenCount: 1, LastSeenPosition: 0},
	}
	universe := []int{1, 2, 3, 4}

	session := s.BuildSession(records, universe)
	found := false
	for _, id := range session {
		if id == 4 {
			found = true
		}
	}
	if !found {
		t.Errorf("never-seen question missing from session: %v", session)
	}
	if session[0] != 4 {
		t.Errorf("never-seen question should lead the session, got %v", session)
	}
}

func TestApplyOutcome(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	tests := []struct {
		name    string
		level   int
		correct bool
		notSure bool
		want    int
	}{
		{"confident correct", 1, true, false, 3},
		{"not sure correct", 1, true, true, 2},
		{"wrong", 3, false, false, 1},
		{"wrong not sure still -2", 3, false, true, 1},
		{"clamp top", 5, true, false, 5},
		{"clamp near top", 4, true, false, 5},
		{"clamp bottom", 0, false, false, 0},
		{"clamp near bottom", 1, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &entities.SpacedRepetitionRecord{Level: tt.level, SeenCount: 2, LastSeenPosition: 5}
			got := s.ApplyOutcome(rec, tt.correct, tt.notSure, 42)

			if got.Level != tt.want {
				t.Errorf("Level = %d, want %d", got.Level, tt.want)
			}
			if got.SeenCount != 3 {
				t.Errorf("SeenCount = %d, want 3", got.SeenCount)
			}
			if got.LastSeenPosition != 42 {
				t.Errorf("LastSeenPosition = %d, want 42", got.LastSeenPosition)
			}
			if got.LastSeen != 1_700_000_000_000 {
				t.Errorf("LastSeen = %d, want clock time", got.LastSeen)
			}

			// The input record must not be mutated.
			if rec.Level != tt.level || rec.SeenCount != 2 {
				t.Error("ApplyOutcome mutated its input")
			}
		})
	}
}

func TestApplyOutcomeNilRecord(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	got := s.ApplyOutcome(nil, true, false, 0)
	if got.Level != 2 {
		t.Errorf("Level = %d, want 2", got.Level)
	}
	if got.SeenCount != 1 {
		t.Errorf("SeenCount = %d, want 1", got.SeenCount)
	}
}

func TestStatsPartition(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	records := map[int]*entities.SpacedRepetitionRecord{
		1: {Level: 5, SeenCount: 3},
		2: {Level: 4, SeenCount: 1},
		3: {Level: 2, SeenCount: 2},
		4: {Level: 0, SeenCount: 4},
		5: {Level: 3, SeenCount: 0}, // never seen despite a level
	}
	universe := []int{1, 2, 3, 4, 5, 6}

	st := s.Stats(records, universe)
	if st.Mastered != 2 {
		t.Errorf("Mastered = %d, want 2", st.Mastered)
	}
	if st.Learning != 1 {
		t.Errorf("Learning = %d, want 1", st.Learning)
	}
	if st.Struggling != 1 {
		t.Errorf("Struggling = %d, want 1", st.Struggling)
	}
	if st.NotStarted != 2 {
		t.Errorf("NotStarted = %d, want 2", st.NotStarted)
	}
	if st.Total() != len(universe) {
		t.Errorf("Total = %d, want %d", st.Total(), len(universe))
	}
}

func TestDueCount(t *testing.T) {
	s := newTestScheduler(DefaultConfig())

	// position = 2+1 = 3.
	records := map[int]*entities.SpacedRepetitionRecord{
		1: {Level: 0, SeenCount: 2, LastSeenPosition: 0}, // 3-0 >= 2: due
		2: {Level: 3, SeenCount: 1, LastSeenPosition: 2}, // 3-2 < 15: not due
	}
	universe := []int{1, 2, 3} // 3 never seen, not counted

	if got := s.DueCount(records, universe); got != 1 {
		t.Errorf("DueCount = %d, want 1", got)
	}
}
