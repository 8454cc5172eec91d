// Package entities contains domain entities used across the application.
package entities

import (
	"sort"
	"strings"
)

// Question represents one multiple-choice question from the exam bank.
// Answers are keyed by letter ("A", "B", ...); Correct holds the letters
// of the correct answers. The bank is loaded once and never mutated.
type Question struct {
	ID      int               `json:"id"`      // unique question id, stable across sessions
	Text    string            `json:"text"`    // question text
	Answers map[string]string `json:"answers"` // letter -> answer text, at least two entries
	Correct []string          `json:"correct"` // correct letters, non-empty subset of answer keys
}

// AnswerLetters returns the answer letters in alphabetical order.
func (q *Question) AnswerLetters() []string {
	letters := make([]string, 0, len(q.Answers))
	for letter := range q.Answers {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters
}

// IsCorrectLetter reports whether the given letter is one of the correct
// answers. The UI is single-select, so a question with several correct
// letters is satisfied by any one of them.
func (q *Question) IsCorrectLetter(letter string) bool {
	for _, c := range q.Correct {
		if c == letter {
			return true
		}
	}
	return false
}

// CorrectText returns the text of all correct answers joined together.
// Used for display only.
func (q *Question) CorrectText() string {
	texts := make([]string, 0, len(q.Correct))
	for _, c := range q.Correct {
		if t, ok := q.Answers[c]; ok {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " / ")
}
