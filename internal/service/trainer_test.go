package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/repository"
	"github.com/aliskhannn/exam-prep-bot/internal/scheduler"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
	syncx "github.com/aliskhannn/exam-prep-bot/internal/sync"
)

func newTestTrainer(t *testing.T, repo *repository.QuestionRepository) *Trainer {
	t.Helper()

	local, err := storage.NewLocalCache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { local.Close() }) //nolint:errcheck

	logger := zap.NewNop()
	syncMgr := syncx.NewManager(nil, local, logger)
	sched := scheduler.New(scheduler.DefaultConfig())
	exams := NewExamService(repo, logger, 2)
	stats := NewStatsService(repo, sched)

	return NewTrainer(repo, storage.NewSessionStorage(), local, syncMgr, sched, exams, stats, logger, 30*time.Minute)
}

func TestStartReviewFlagged(t *testing.T) {
	tr := newTestTrainer(t, newTestRepo(t, 10))
	ctx := context.Background()

	sess := tr.Session(ctx, 1)
	sess.Store.SetFlag(7, true)
	sess.Store.SetFlag(3, true)

	if err := tr.StartReview(ctx, 1, entities.RoundReviewFlagged); err != nil {
		t.Fatal(err)
	}

	if typ := sess.Machine.RoundType(); typ != entities.RoundReviewFlagged {
		t.Errorf("round type = %s, want review_flagged", typ)
	}
	if _, total := sess.Machine.Position(); total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	// Bookmarked questions run in ascending id order.
	if id, _ := sess.Machine.CurrentQuestionID(); id != 3 {
		t.Errorf("first question = %d, want 3", id)
	}

	// Removing a bookmark shrinks the next flagged review accordingly.
	sess.Machine.Exit()
	sess.Store.SetFlag(3, false)
	if err := tr.StartReview(ctx, 1, entities.RoundReviewFlagged); err != nil {
		t.Fatal(err)
	}
	if _, total := sess.Machine.Position(); total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if id, _ := sess.Machine.CurrentQuestionID(); id != 7 {
		t.Errorf("first question = %d, want 7", id)
	}
}

func TestStartReviewFlaggedWithoutBookmarks(t *testing.T) {
	tr := newTestTrainer(t, newTestRepo(t, 5))

	err := tr.StartReview(context.Background(), 1, entities.RoundReviewFlagged)
	if !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Errorf("error = %v, want ErrNoQuestionsAvailable", err)
	}
}
