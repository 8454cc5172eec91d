package telegram

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// examListHandler shows the exam-set list with completion marks.
func (h *Handler) examListHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		sess := h.trainer.Session(ctx, userID)

		count := h.exams.Count(sess.Store)
		if count == 0 {
			h.send(newHTMLMessage(chatID, msgNoExamSets))
			return nil
		}

		msg := newHTMLMessage(chatID, msgExamList)
		msg.ReplyMarkup = buildExamListKeyboard(sess.Store, count)
		h.send(msg)
		return nil
	}
}

// adaptiveHandler starts a spaced-repetition training round.
func (h *Handler) adaptiveHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		if err := h.trainer.StartAdaptive(ctx, userID); err != nil {
			h.send(newHTMLMessage(chatID, msgNoQuestions))
			return nil
		}

		sess := h.trainer.Session(ctx, userID)
		return h.sendQuestion(chatID, sess)
	}
}

// reviewMenuHandler shows the review picker over the last finished base
// round.
func (h *Handler) reviewMenuHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		sess := h.trainer.Session(ctx, userID)

		counts := h.reviewCounts(sess)
		total := 0
		for _, n := range counts {
			total += n
		}
		if total == 0 {
			h.send(newHTMLMessage(chatID, msgNoReviewBase))
			return nil
		}

		text := "<b>Повторение</b>\n\nВыберите набор вопросов:"
		if stats, ok := sess.Machine.BaseStats(); ok {
			text = fmt.Sprintf(msgReviewMenu, "Основной раунд", stats.Correct, stats.Total)
		}

		msg := newHTMLMessage(chatID, text)
		msg.ReplyMarkup = buildResultsKeyboard(counts)
		h.send(msg)
		return nil
	}
}

// progressHandler shows the progress overview.
func (h *Handler) progressHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		sess := h.trainer.Session(ctx, userID)

		summary := h.stats.Summary(sess.Store)

		msg := newHTMLMessage(chatID, formatProgress(summary))
		msg.ReplyMarkup = buildProgressKeyboard()
		h.send(msg)
		return nil
	}
}

// syncHandler shows the sync status and the user's profile code.
func (h *Handler) syncHandler(userID int64) HandlerFunc {
	return func(ctx context.Context, chatID int64) error {
		sess := h.trainer.Session(ctx, userID)
		status := h.trainer.SyncStatus(ctx, userID)

		msg := newHTMLMessage(chatID, formatSync(status, sess.ProfileID))
		msg.ReplyMarkup = buildSyncKeyboard()
		h.send(msg)
		return nil
	}
}

// handleCodeCommand attaches the user to a sync code from another
// device.
func (h *Handler) handleCodeCommand(ctx context.Context, chatID, userID int64, args string) {
	code := strings.TrimSpace(args)
	if code == "" {
		h.send(newHTMLMessage(chatID, msgInvalidShareCode))
		return
	}

	if err := h.trainer.SwitchProfile(ctx, userID, code); err != nil {
		h.logger.Error("profile switch failed", zap.Error(err))
		h.sendError(chatID, msgInternalError)
		return
	}

	msg := newHTMLMessage(chatID, "✅ Код подключён. Прогресс будет синхронизирован.")
	msg.ReplyMarkup = buildMenuKeyboard()
	h.send(msg)
}

// handleNoteCommand saves (or, with empty text, clears) the user's
// persistent note on the current question.
func (h *Handler) handleNoteCommand(ctx context.Context, chatID, userID int64, args string) {
	sess := h.trainer.Session(ctx, userID)

	id, ok := sess.Machine.CurrentQuestionID()
	if !ok {
		h.send(newHTMLMessage(chatID, msgNoActiveRound))
		return
	}

	note := strings.TrimSpace(args)
	sess.Store.SetNote(id, note)
	if note == "" {
		h.send(newHTMLMessage(chatID, msgNoteCleared))
		return
	}
	h.send(newHTMLMessage(chatID, msgNoteSaved))
}
