package service

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/repository"
	"github.com/aliskhannn/exam-prep-bot/internal/scheduler"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
)

// ReminderNotifier sends practice reminders to users.
type ReminderNotifier interface {
	SendPracticeReminder(chatID int64, dueCount int) error
}

// ReminderService nudges users who have overdue adaptive questions.
type ReminderService struct {
	sessions *storage.SessionStorage
	repo     *repository.QuestionRepository
	sched    *scheduler.Scheduler
	notifier ReminderNotifier
	logger   *zap.Logger
	spec     string // cron spec for the dispatch
}

// NewReminderService creates a reminder service. spec is a standard
// cron expression; the default fires once a day at 17:00 UTC.
func NewReminderService(
	sessions *storage.SessionStorage,
	repo *repository.QuestionRepository,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
	spec string,
) *ReminderService {
	if spec == "" {
		spec = "0 17 * * *"
	}
	return &ReminderService{
		sessions: sessions,
		repo:     repo,
		sched:    sched,
		logger:   logger,
		spec:     spec,
	}
}

// SetNotifier sets the notifier (called after the handler is created).
func (s *ReminderService) SetNotifier(notifier ReminderNotifier) {
	s.notifier = notifier
}

// Start begins the reminder scheduling loop.
func (s *ReminderService) Start(ctx context.Context) {
	c := cron.New()

	_, err := c.AddFunc(s.spec, s.processReminders)
	if err != nil {
		s.logger.Error("failed to add cron job", zap.Error(err))
		return
	}

	c.Start()
	s.logger.Info("reminder service started", zap.String("spec", s.spec))

	go func() {
		<-ctx.Done()
		c.Stop()
		s.logger.Info("reminder service stopped")
	}()
}

func (s *ReminderService) processReminders() {
	if s.notifier == nil {
		return
	}

	universe := s.repo.AllIDs()
	for userID, sess := range s.sessions.All() {
		due := s.sched.DueCount(sess.Store.Records(), universe)
		if due == 0 {
			continue
		}

		if err := s.notifier.SendPracticeReminder(userID, due); err != nil {
			s.logger.Warn("reminder send failed",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			continue
		}

		s.logger.Debug("reminder sent",
			zap.Int64("user_id", userID),
			zap.Int("due", due),
		)
	}
}
