package service

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/repository"
)

func newTestRepo(t *testing.T, n int) *repository.QuestionRepository {
	t.Helper()

	questions := make([]*entities.Question, 0, n)
	for id := 1; id <= n; id++ {
		questions = append(questions, &entities.Question{
			ID:      id,
			Text:    "question",
			Answers: map[string]string{"A": "one", "B": "two"},
			Correct: []string{"A"},
		})
	}

	data, err := json.Marshal(struct {
		Questions []*entities.Question `json:"questions"`
	}{Questions: questions})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "questions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	repo, err := repository.NewQuestionRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestRegeneratePartition(t *testing.T) {
	repo := newTestRepo(t, 23)
	svc := NewExamService(repo, zap.NewNop(), 5)
	store := progress.NewStore()

	svc.Regenerate(store)

	exams := store.Exams()
	if len(exams) != 5 {
		t.Fatalf("sets = %d, want 5", len(exams))
	}

	// 23 over 5 sets: three sets of 5 and two of 4, disjoint, covering
	// the whole bank.
	seen := make(map[int]bool)
	for _, group := range exams {
		if len(group) != 4 && len(group) != 5 {
			t.Errorf("group size = %d, want 4 or 5", len(group))
		}
		for _, id := range group {
			if seen[id] {
				t.Errorf("question %d appears in two sets", id)
			}
			seen[id] = true
		}
	}
	if len(seen) != 23 {
		t.Errorf("covered %d questions, want 23", len(seen))
	}
}

func TestEnsureKeepsExistingPartition(t *testing.T) {
	repo := newTestRepo(t, 10)
	svc := NewExamService(repo, zap.NewNop(), 2)
	store := progress.NewStore()

	svc.Ensure(store)
	first := store.Exams()

	store.MarkExamCompleted(0, entities.ModeLearning)

	// A second Ensure must not regenerate or clear completion.
	svc.Ensure(store)
	second := store.Exams()

	if len(first) != len(second) {
		t.Fatal("Ensure must keep the existing partition")
	}
	for i := range first {
		if len(first[i]) != len(second[i]) || first[i][0] != second[i][0] {
			t.Fatal("partition changed by Ensure")
		}
	}
	if !store.IsExamCompleted(0, entities.ModeLearning) {
		t.Error("completion flag lost")
	}
}

func TestRegenerateClearsCompletion(t *testing.T) {
	repo := newTestRepo(t, 10)
	svc := NewExamService(repo, zap.NewNop(), 2)
	store := progress.NewStore()

	svc.Ensure(store)
	store.MarkExamCompleted(0, entities.ModeExam)

	svc.Regenerate(store)
	if store.IsExamCompleted(0, entities.ModeExam) {
		t.Error("Regenerate must clear completion flags")
	}
}

func TestQuestionsUnknownIndex(t *testing.T) {
	repo := newTestRepo(t, 10)
	svc := NewExamService(repo, zap.NewNop(), 2)
	store := progress.NewStore()
	svc.Ensure(store)

	if _, err := svc.Questions(store, -1); !errors.Is(err, ErrUnknownExam) {
		t.Errorf("error = %v, want ErrUnknownExam", err)
	}
	if _, err := svc.Questions(store, 2); !errors.Is(err, ErrUnknownExam) {
		t.Errorf("error = %v, want ErrUnknownExam", err)
	}

	ids, err := svc.Questions(store, 0)
	if err != nil || len(ids) != 5 {
		t.Errorf("Questions(0) = %v, %v", ids, err)
	}
}

func TestWeakestQuestions(t *testing.T) {
	repo := newTestRepo(t, 10)
	stats := NewStatsService(repo, nil)
	store := progress.NewStore()

	store.IncrementWrong(3)
	store.IncrementWrong(3)
	store.IncrementWrong(3)
	store.IncrementWrong(7)
	store.IncrementWrong(5)
	store.IncrementWrong(5)

	weak := stats.WeakestQuestions(store, 2)
	if len(weak) != 2 {
		t.Fatalf("len = %d, want 2", len(weak))
	}
	if weak[0].QuestionID != 3 || weak[0].WrongCount != 3 {
		t.Errorf("first = %+v, want question 3 with 3 wrongs", weak[0])
	}
	if weak[1].QuestionID != 5 {
		t.Errorf("second = %+v, want question 5", weak[1])
	}

	// Ties break by ascending question id.
	store.IncrementWrong(7)
	weak = stats.WeakestQuestions(store, 0)
	if weak[1].QuestionID != 5 || weak[2].QuestionID != 7 {
		t.Errorf("tie order = %+v, want 5 before 7", weak)
	}
}
