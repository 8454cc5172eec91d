package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/repository"
	"github.com/aliskhannn/exam-prep-bot/internal/round"
	"github.com/aliskhannn/exam-prep-bot/internal/scheduler"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
	syncx "github.com/aliskhannn/exam-prep-bot/internal/sync"
)

var ErrNoQuestionsAvailable = errors.New("no questions available")

// weakReviewSize bounds a review-weak round.
const weakReviewSize = 20

// Trainer owns per-user sessions and is the single entry point the
// delivery layer uses to start rounds and manage profiles.
type Trainer struct {
	repo     *repository.QuestionRepository
	sessions *storage.SessionStorage
	local    *storage.LocalCache
	syncMgr  *syncx.Manager
	sched    *scheduler.Scheduler
	exams    *ExamService
	stats    *StatsService
	logger   *zap.Logger

	examDuration time.Duration
}

// NewTrainer creates the trainer.
func NewTrainer(
	repo *repository.QuestionRepository,
	sessions *storage.SessionStorage,
	local *storage.LocalCache,
	syncMgr *syncx.Manager,
	sched *scheduler.Scheduler,
	exams *ExamService,
	stats *StatsService,
	logger *zap.Logger,
	examDuration time.Duration,
) *Trainer {
	return &Trainer{
		repo:         repo,
		sessions:     sessions,
		local:        local,
		syncMgr:      syncMgr,
		sched:        sched,
		exams:        exams,
		stats:        stats,
		logger:       logger,
		examDuration: examDuration,
	}
}

// defaultProfileID derives the initial profile id for a Telegram user.
func defaultProfileID(userID int64) string {
	return fmt.Sprintf("tg-%d", userID)
}

// Session returns the user's session, creating and bootstrapping it on
// first contact: profile binding, progress store, sync attachment,
// round machine and exam partition.
func (t *Trainer) Session(ctx context.Context, userID int64) *storage.Session {
	if sess := t.sessions.Get(userID); sess != nil {
		return sess
	}

	profileID, err := t.local.Binding(userID)
	if err != nil {
		profileID = defaultProfileID(userID)
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Warn("binding lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		if err := t.local.SetBinding(userID, profileID); err != nil {
			t.logger.Warn("binding save failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	store := progress.NewStore()
	t.syncMgr.Attach(ctx, profileID, store)
	t.exams.Ensure(store)

	sess := &storage.Session{
		ProfileID: profileID,
		Store:     store,
		Machine:   round.NewMachine(t.repo, store, t.sched, t.logger),
	}
	t.sessions.Store(userID, sess)

	t.logger.Info("session created",
		zap.Int64("user_id", userID),
		zap.String("profile_id", profileID),
	)
	return sess
}

// StartLearning begins an immediate-feedback base round over one exam
// set.
func (t *Trainer) StartLearning(ctx context.Context, userID int64, examIndex int) error {
	sess := t.Session(ctx, userID)
	ids, err := t.exams.Questions(sess.Store, examIndex)
	if err != nil {
		return err
	}
	if !sess.Machine.Start(entities.RoundBase, entities.ModeLearning, ids, round.StartOptions{ExamIndex: examIndex}) {
		return ErrNoQuestionsAvailable
	}
	return nil
}

// StartExam begins a timed exam-style base round over one exam set.
// onExpire is invoked from the countdown when time runs out.
func (t *Trainer) StartExam(ctx context.Context, userID int64, examIndex int, onExpire func()) error {
	sess := t.Session(ctx, userID)
	ids, err := t.exams.Questions(sess.Store, examIndex)
	if err != nil {
		return err
	}
	opts := round.StartOptions{
		ExamIndex: examIndex,
		Duration:  t.examDuration,
		OnExpire:  onExpire,
	}
	if !sess.Machine.Start(entities.RoundBase, entities.ModeExam, ids, opts) {
		return ErrNoQuestionsAvailable
	}
	return nil
}

// StartAdaptive begins a base round over the spaced-repetition queue.
func (t *Trainer) StartAdaptive(ctx context.Context, userID int64) error {
	sess := t.Session(ctx, userID)
	ids := t.sched.BuildSession(sess.Store.Records(), t.repo.AllIDs())
	if !sess.Machine.Start(entities.RoundBase, entities.ModeAdaptive, ids, round.StartOptions{ExamIndex: -1}) {
		return ErrNoQuestionsAvailable
	}
	return nil
}

// StartReview begins a review sub-round. Snapshot-driven types derive
// their question set from the completed base round; review-weak is
// driven by accumulated wrong counts and review-flagged by the user's
// persistent bookmarks.
func (t *Trainer) StartReview(ctx context.Context, userID int64, typ entities.RoundType) error {
	sess := t.Session(ctx, userID)

	var ids []int
	switch typ {
	case entities.RoundReviewWeak:
		for _, w := range t.stats.WeakestQuestions(sess.Store, weakReviewSize) {
			ids = append(ids, w.QuestionID)
		}
	case entities.RoundReviewFlagged:
		ids = sess.Store.FlaggedQuestions()
		sort.Ints(ids)
	default:
		ids = sess.Machine.ReviewSet(typ)
	}

	if len(ids) == 0 {
		return ErrNoQuestionsAvailable
	}

	// Review rounds keep the base round's mode semantics simple:
	// always immediate feedback.
	if !sess.Machine.Start(typ, entities.ModeLearning, ids, round.StartOptions{ExamIndex: -1}) {
		return ErrNoQuestionsAvailable
	}
	return nil
}

// SwitchProfile rebinds the user to another profile id and reconciles
// against its remote snapshot.
func (t *Trainer) SwitchProfile(ctx context.Context, userID int64, profileID string) error {
	sess := t.Session(ctx, userID)
	if profileID == "" || profileID == sess.ProfileID {
		return nil
	}

	if err := t.local.SetBinding(userID, profileID); err != nil {
		return fmt.Errorf("save binding: %w", err)
	}

	t.syncMgr.Switch(ctx, sess.ProfileID, profileID, sess.Store)
	sess.ProfileID = profileID
	t.exams.Ensure(sess.Store)

	t.logger.Info("profile switched",
		zap.Int64("user_id", userID),
		zap.String("profile_id", profileID),
	)
	return nil
}

// NewShareCode generates a fresh profile id, moves the user's progress
// under it and returns the code for use on another device.
func (t *Trainer) NewShareCode(ctx context.Context, userID int64) (string, error) {
	code := uuid.NewString()
	if err := t.SwitchProfile(ctx, userID, code); err != nil {
		return "", err
	}
	return code, nil
}

// SyncStatus returns the user's sync connectivity status.
func (t *Trainer) SyncStatus(ctx context.Context, userID int64) syncx.Status {
	sess := t.Session(ctx, userID)
	rec, ok := t.syncMgr.Reconciler(sess.ProfileID)
	if !ok {
		return syncx.StatusOffline
	}
	return rec.Status()
}

// Reset wipes the user's progress and regenerates the exam partition.
func (t *Trainer) Reset(ctx context.Context, userID int64) {
	sess := t.Session(ctx, userID)
	sess.Machine.Exit()
	sess.Store.Reset()
	t.exams.Regenerate(sess.Store)
	t.logger.Info("progress reset", zap.Int64("user_id", userID))
}
