package entities

// RoundType describes what a round is scoped to: a fresh base round over
// an exam set or adaptive queue, or a review sub-round over a subset of a
// prior base round's questions.
type RoundType string

const (
	RoundBase           RoundType = "base"            // fresh practice/exam instance
	RoundReviewWrong    RoundType = "review_wrong"    // questions answered incorrectly in the base round
	RoundReviewNotSure  RoundType = "review_not_sure" // questions flagged "not sure"
	RoundReviewDontKnow RoundType = "review_dont_know" // questions flagged "don't know"
	RoundReviewAll      RoundType = "review_all"      // union of the three review subsets
	RoundReviewWeak     RoundType = "review_weak"     // driven by accumulated wrong counts
	RoundReviewFlagged  RoundType = "review_flagged"  // questions the user bookmarked
)

// IsReview reports whether the round type is a review sub-round.
// Only base rounds write history on completion.
func (t RoundType) IsReview() bool {
	return t != RoundBase
}

// Mode determines answer-checking behaviour within a round.
type Mode string

const (
	ModeLearning Mode = "learning" // immediate feedback, two-phase advance
	ModeExam     Mode = "exam"     // check and advance together, timed
	ModeAdaptive Mode = "adaptive" // learning-style flow over the adaptive queue
)

// Immediate reports whether the mode reveals correctness right after
// checking, before moving to the next question.
func (m Mode) Immediate() bool {
	return m == ModeLearning || m == ModeAdaptive
}

// QuestionStatus is the terminal state of one question within a round.
type QuestionStatus string

const (
	StatusUnanswered QuestionStatus = "unanswered"
	StatusCorrect    QuestionStatus = "correct"
	StatusWrong      QuestionStatus = "wrong"
)

// QuestionState is the per-round, per-question draft and result state.
// It is created lazily on first render and destroyed when the round ends
// or is superseded.
type QuestionState struct {
	SelectedAnswer string         `json:"selectedAnswer,omitempty"` // chosen letter, empty if none
	Status         QuestionStatus `json:"status"`                   // unanswered, correct or wrong
	DontKnow       bool           `json:"dontKnow"`                 // "don't know" confidence flag
	NotSure        bool           `json:"notSure"`                  // "not sure" confidence flag
	TimeSpentSec   int            `json:"timeSpentSeconds"`         // seconds spent on the question
}

// Terminal reports whether the question has been checked already.
func (s *QuestionState) Terminal() bool {
	return s.Status == StatusCorrect || s.Status == StatusWrong
}
