package entities

// Spaced repetition levels range from 0 (never mastered or just failed)
// to 5 (fully mastered).
const (
	MinLevel = 0
	MaxLevel = 5
)

// SpacedRepetitionRecord tracks long-term mastery of one question.
// It survives across sessions and is only removed by a full reset.
type SpacedRepetitionRecord struct {
	Level            int   `json:"level"`            // mastery level 0..5
	LastSeen         int64 `json:"lastSeen"`         // unix ms of the last review, 0 = never
	SeenCount        int   `json:"seenCount"`        // how many times the question was reviewed
	LastSeenPosition int   `json:"lastSeenPosition"` // global review position of the last encounter
}

// Clone returns a copy of the record.
func (r *SpacedRepetitionRecord) Clone() *SpacedRepetitionRecord {
	c := *r
	return &c
}

// HistoryEntry summarises one completed base round. Entries are
// append-only and feed trend and pass-rate statistics.
type HistoryEntry struct {
	Date       int64   `json:"date"`        // unix ms of completion
	Mode       string  `json:"mode"`        // round mode: learning, exam or adaptive
	Total      int     `json:"total"`       // number of questions in the round
	Correct    int     `json:"correct"`     // number of correct answers
	Percent    float64 `json:"percentage"`  // correct/total * 100
	AvgTimeSec float64 `json:"averageTime"` // average seconds per question
}

// ExamQuestionResult is the per-question detail inside an ExamHistoryRecord.
type ExamQuestionResult struct {
	QuestionID int    `json:"questionId"`
	Selected   string `json:"selected"` // chosen letter, empty if skipped
	Correct    bool   `json:"correct"`
}

// ExamHistoryRecord is the detailed record of one completed base round,
// kept for retrospective drill-down. The store holds at most the 50 most
// recent records, evicting the oldest first.
type ExamHistoryRecord struct {
	Date    int64                `json:"date"`
	Mode    string               `json:"mode"`
	Total   int                  `json:"total"`
	Correct int                  `json:"correct"`
	Results []ExamQuestionResult `json:"results"`
}

// QuestionMeta holds the user's flag and note for one question. Only
// questions the user has flagged or annotated have an entry.
type QuestionMeta struct {
	Flagged bool   `json:"flagged"`
	Note    string `json:"note"`
}

// ProgressDocument is the wire shape of one profile's synced progress.
// A nil slice or map on read means "no change" for that field; outgoing
// writes always carry the full snapshot.
type ProgressDocument struct {
	Timestamp         int64                           `json:"timestamp"` // unix ms of the last local mutation
	CompletedLearning []int                           `json:"completedLearning"`
	CompletedExam     []int                           `json:"completedExam"`
	History           []HistoryEntry                  `json:"history"`
	WrongCounts       map[int]int                     `json:"wrongCounts"`
	Exams             [][]int                         `json:"exams"`
	QuestionMeta      map[int]QuestionMeta            `json:"questionMeta"`
	SpacedRepetition  map[int]*SpacedRepetitionRecord `json:"spacedRepetition"`
	ExamHistory       []ExamHistoryRecord             `json:"examHistory"`
}
