package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
	"github.com/aliskhannn/exam-prep-bot/internal/service"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
	syncx "github.com/aliskhannn/exam-prep-bot/internal/sync"
)

type TrainerService interface {
	Session(ctx context.Context, userID int64) *storage.Session
	StartLearning(ctx context.Context, userID int64, examIndex int) error
	StartExam(ctx context.Context, userID int64, examIndex int, onExpire func()) error
	StartAdaptive(ctx context.Context, userID int64) error
	StartReview(ctx context.Context, userID int64, typ entities.RoundType) error
	SwitchProfile(ctx context.Context, userID int64, profileID string) error
	NewShareCode(ctx context.Context, userID int64) (string, error)
	SyncStatus(ctx context.Context, userID int64) syncx.Status
	Reset(ctx context.Context, userID int64)
}

type StatsService interface {
	Summary(store *progress.Store) *service.ProgressSummary
	WeakestQuestions(store *progress.Store, limit int) []service.WeakQuestion
}

// weakReviewLimit bounds the weak-spot review offer.
const weakReviewLimit = 20

type ExamService interface {
	Count(store *progress.Store) int
}

type Handler struct {
	bot     *tgbotapi.BotAPI
	logger  *zap.Logger
	trainer TrainerService
	stats   StatsService
	exams   ExamService
}

func NewHandler(
	bot *tgbotapi.BotAPI,
	logger *zap.Logger,
	trainer TrainerService,
	stats StatsService,
	exams ExamService,
) *Handler {
	return &Handler{
		bot:     bot,
		logger:  logger,
		trainer: trainer,
		stats:   stats,
		exams:   exams,
	}
}

func (h *Handler) Run(ctx context.Context) error {
	h.logger.Info("telegram handler started")
	defer h.logger.Info("telegram handler stopped")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := h.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			h.handleUpdate(ctx, update)
		}
	}
}

func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		h.logger.Debug("callback received",
			zap.Int64("user_id", update.CallbackQuery.From.ID),
			zap.String("data", update.CallbackQuery.Data),
		)
		h.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil {
		h.logger.Debug("update without message and callback")
		return
	}

	h.logger.Debug("update received",
		zap.Int64("chat_id", update.Message.Chat.ID),
		zap.String("text", update.Message.Text),
	)

	from := update.Message.From
	chatID := update.Message.Chat.ID

	if update.Message.IsCommand() {
		switch update.Message.Command() {
		case "start":
			msg := newHTMLMessage(chatID, msgWelcome)
			msg.ReplyMarkup = buildMenuKeyboard()
			h.send(msg)

		case "help":
			h.send(newHTMLMessage(chatID, msgHelp))

		case "exams":
			_ = h.withErrorHandling(h.examListHandler(from.ID))(ctx, chatID)

		case "adaptive":
			_ = h.withErrorHandling(h.adaptiveHandler(from.ID))(ctx, chatID)

		case "review":
			_ = h.withErrorHandling(h.reviewMenuHandler(from.ID))(ctx, chatID)

		case "progress":
			_ = h.withErrorHandling(h.progressHandler(from.ID))(ctx, chatID)

		case "sync":
			_ = h.withErrorHandling(h.syncHandler(from.ID))(ctx, chatID)

		case "code":
			h.handleCodeCommand(ctx, chatID, from.ID, update.Message.CommandArguments())

		case "note":
			h.handleNoteCommand(ctx, chatID, from.ID, update.Message.CommandArguments())

		case "reset":
			msg := newHTMLMessage(chatID, msgResetConfirm)
			msg.ReplyMarkup = buildResetKeyboard()
			h.send(msg)

		default:
			h.send(newHTMLMessage(chatID, msgUnknownCommand))
		}

		return
	}

	h.send(newHTMLMessage(chatID, msgUnknownCommand))
}

func (h *Handler) sendError(chatID int64, err string) {
	msg := newHTMLMessage(chatID, err)
	h.send(msg)
}

func (h *Handler) send(c tgbotapi.Chattable) {
	if _, err := h.bot.Send(c); err != nil {
		h.logger.Error("failed to send telegram message",
			zap.Error(err),
		)
	}
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	return msg
}
