// Package importer converts question banks from XLSX spreadsheets into
// the JSON format the bot loads at startup.
package importer

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
)

// Config defines the import configuration. The expected sheet layout is
// one question per row: question text in the first column, answer
// options in the following columns and the correct letters (comma
// separated, e.g. "A" or "A,C") in the last filled column.
type Config struct {
	FilePath   string // path to the XLSX file
	SheetName  string // name of the sheet to import
	StartRow   int    // row to start importing from (1-based)
	MaxAnswers int    // maximum answer columns per question
}

// DefaultConfig returns the default import configuration.
func DefaultConfig() Config {
	return Config{
		SheetName:  "Sheet1",
		StartRow:   2, // skip the header row
		MaxAnswers: 5,
	}
}

// Result holds the outcome of an import operation.
type Result struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// answerLetters labels answer columns in order.
var answerLetters = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

// Import reads the spreadsheet and returns the parsed question bank.
func Import(cfg Config) ([]*entities.Question, *Result, error) {
	f, err := excelize.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(cfg.SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &Result{}
	var questions []*entities.Question

	nextID := 1
	for i, row := range rows {
		if i < cfg.StartRow-1 {
			continue
		}
		result.TotalProcessed++

		q, err := parseRow(row, nextID, cfg.MaxAnswers)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}

		questions = append(questions, q)
		result.Imported++
		nextID++
	}

	return questions, result, nil
}

// parseRow converts one sheet row into a question.
func parseRow(row []string, id, maxAnswers int) (*entities.Question, error) {
	if len(row) < 4 {
		return nil, fmt.Errorf("expected question, at least two answers and correct letters")
	}

	text := strings.TrimSpace(row[0])
	if text == "" {
		return nil, fmt.Errorf("question text is empty")
	}

	// Answer options occupy the columns between the text and the
	// correct-letters column.
	last := len(row) - 1
	for last > 0 && strings.TrimSpace(row[last]) == "" {
		last--
	}
	if last < 3 {
		return nil, fmt.Errorf("missing correct letters column")
	}

	answerCells := row[1:last]
	if len(answerCells) > maxAnswers {
		answerCells = answerCells[:maxAnswers]
	}

	answers := make(map[string]string, len(answerCells))
	for j, cell := range answerCells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if j >= len(answerLetters) {
			break
		}
		answers[answerLetters[j]] = cell
	}
	if len(answers) < 2 {
		return nil, fmt.Errorf("fewer than two answers")
	}

	correct, err := parseCorrect(row[last], answers)
	if err != nil {
		return nil, err
	}

	return &entities.Question{
		ID:      id,
		Text:    text,
		Answers: answers,
		Correct: correct,
	}, nil
}

// parseCorrect parses the correct-letters cell. Both letters ("A,C")
// and 1-based option numbers ("1,3") are accepted.
func parseCorrect(cell string, answers map[string]string) ([]string, error) {
	var correct []string
	for _, part := range strings.Split(cell, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}

		if n, err := strconv.Atoi(part); err == nil {
			if n < 1 || n > len(answerLetters) {
				return nil, fmt.Errorf("correct option number %d out of range", n)
			}
			part = answerLetters[n-1]
		}

		if _, ok := answers[part]; !ok {
			return nil, fmt.Errorf("correct letter %q not among answers", part)
		}
		correct = append(correct, part)
	}

	if len(correct) == 0 {
		return nil, fmt.Errorf("no correct letters")
	}
	return correct, nil
}

// WriteJSON saves the imported bank in the format the repository loads.
func WriteJSON(path string, questions []*entities.Question) error {
	wrapper := struct {
		Questions []*entities.Question `json:"questions"`
	}{Questions: questions}

	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal question bank: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write question bank: %w", err)
	}
	return nil
}
