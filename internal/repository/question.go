// Package repository provides access to the immutable question bank.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidBank      = errors.New("invalid question bank")
)

// QuestionRepository holds the question bank in memory. It is loaded
// once at startup and never mutated; a failed load means no round may
// start.
type QuestionRepository struct {
	questions []*entities.Question
	byID      map[int]*entities.Question
}

// NewQuestionRepository loads and validates the question bank from a
// JSON file.
func NewQuestionRepository(path string) (*QuestionRepository, error) {
	questions, err := loadBank(path)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*entities.Question, len(questions))
	for _, q := range questions {
		if _, ok := byID[q.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate question id %d", ErrInvalidBank, q.ID)
		}
		byID[q.ID] = q
	}

	return &QuestionRepository{
		questions: questions,
		byID:      byID,
	}, nil
}

// ByID retrieves a question by id.
func (r *QuestionRepository) ByID(id int) (*entities.Question, error) {
	q, ok := r.byID[id]
	if !ok {
		return nil, ErrQuestionNotFound
	}
	return q, nil
}

// All retrieves the whole bank in file order.
func (r *QuestionRepository) All() []*entities.Question {
	return r.questions
}

// AllIDs returns every question id in file order.
func (r *QuestionRepository) AllIDs() []int {
	ids := make([]int, 0, len(r.questions))
	for _, q := range r.questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// Count returns the size of the bank.
func (r *QuestionRepository) Count() int {
	return len(r.questions)
}

func loadBank(path string) ([]*entities.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var wrapper struct {
		Questions []*entities.Question `json:"questions"`
	}
	if err = json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question bank JSON: %w", err)
	}

	if len(wrapper.Questions) == 0 {
		return nil, fmt.Errorf("%w: empty bank", ErrInvalidBank)
	}

	for _, q := range wrapper.Questions {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
	}

	return wrapper.Questions, nil
}

func validateQuestion(q *entities.Question) error {
	if len(q.Answers) < 2 {
		return fmt.Errorf("%w: question %d has fewer than two answers", ErrInvalidBank, q.ID)
	}
	if len(q.Correct) == 0 {
		return fmt.Errorf("%w: question %d has no correct letters", ErrInvalidBank, q.ID)
	}
	for _, letter := range q.Correct {
		if _, ok := q.Answers[letter]; !ok {
			return fmt.Errorf("%w: question %d correct letter %q not among answers", ErrInvalidBank, q.ID, letter)
		}
	}
	return nil
}
