package telegram

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
)

func (h *Handler) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	cd := decodeCallback(cb.Data)
	userID := cb.From.ID

	switch cd.Action {
	case actionMenu:
		h.editTo(cb, msgWelcome, buildMenuKeyboard())

	case actionExams:
		h.handleExamListCallback(ctx, cb, userID)

	case actionExam:
		h.handleExamCallback(ctx, cb, userID, cd.Params)

	case actionAdaptive:
		h.handleAdaptiveCallback(ctx, cb, userID)

	case actionAnswer:
		h.handleAnswerCallback(ctx, cb, userID, cd.Params)

	case actionFlag:
		h.handleFlagCallback(ctx, cb, userID, cd.Params)

	case actionNav:
		h.handleNavCallback(ctx, cb, userID, cd.Params)

	case actionReview:
		h.handleReviewCallback(ctx, cb, userID, cd.Params)

	case actionProgress:
		sess := h.trainer.Session(ctx, userID)
		h.editTo(cb, formatProgress(h.stats.Summary(sess.Store)), buildProgressKeyboard())

	case actionSync:
		h.handleSyncCallback(ctx, cb, userID, cd.Params)

	case actionReset:
		h.handleResetCallback(ctx, cb, userID, cd.Params)

	default:
		h.logger.Debug("unknown callback", zap.String("data", cb.Data))
	}

	h.answerCallback(cb.ID, "")
}

func (h *Handler) handleExamListCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64) {
	sess := h.trainer.Session(ctx, userID)

	count := h.exams.Count(sess.Store)
	if count == 0 {
		h.editTo(cb, msgNoExamSets, buildMenuKeyboard())
		return
	}

	h.editTo(cb, msgExamList, buildExamListKeyboard(sess.Store, count))
}

func (h *Handler) handleExamCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	if len(params) == 0 {
		return
	}

	index, err := strconv.Atoi(params[0])
	if err != nil || index < 0 {
		h.logger.Debug("invalid exam callback", zap.String("data", cb.Data))
		return
	}

	sess := h.trainer.Session(ctx, userID)

	// Bare index opens the mode picker.
	if len(params) == 1 {
		exams := sess.Store.Exams()
		if index >= len(exams) {
			h.editTo(cb, msgUnknownExam, buildMenuKeyboard())
			return
		}
		text := fmt.Sprintf(msgExamModePrompt, index+1, len(exams[index]))
		h.editTo(cb, text, buildExamModeKeyboard(index))
		return
	}

	switch params[1] {
	case examLearn:
		err = h.trainer.StartLearning(ctx, userID, index)
	case examTimed:
		chatID := cb.Message.Chat.ID
		err = h.trainer.StartExam(ctx, userID, index, h.examExpiredNotifier(chatID, sess))
	default:
		return
	}

	if err != nil {
		h.logger.Warn("round start failed", zap.Int64("user_id", userID), zap.Error(err))
		h.editTo(cb, msgNoQuestions, buildMenuKeyboard())
		return
	}

	if err := h.editToQuestion(cb, sess); err != nil {
		h.logger.Error("question render failed", zap.Error(err))
		h.sendError(cb.Message.Chat.ID, msgInternalError)
	}
}

// examExpiredNotifier builds the countdown callback for a timed round.
// It runs on the timer goroutine after the machine force-completed the
// round.
func (h *Handler) examExpiredNotifier(chatID int64, sess *storage.Session) func() {
	return func() {
		text, kb := h.resultsView(sess)

		msg := newHTMLMessage(chatID, "⏰ <b>Время вышло!</b>\n\n"+text)
		msg.ReplyMarkup = *kb
		h.send(msg)
	}
}

func (h *Handler) handleAdaptiveCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64) {
	if err := h.trainer.StartAdaptive(ctx, userID); err != nil {
		h.editTo(cb, msgNoQuestions, buildMenuKeyboard())
		return
	}

	sess := h.trainer.Session(ctx, userID)
	if err := h.editToQuestion(cb, sess); err != nil {
		h.logger.Error("question render failed", zap.Error(err))
	}
}

func (h *Handler) handleAnswerCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	if len(params) == 0 {
		return
	}
	letter := params[0]

	sess := h.trainer.Session(ctx, userID)
	st, ok := sess.Machine.CurrentState()
	if !ok {
		h.answerCallback(cb.ID, msgNoActiveRound)
		return
	}

	// Tapping the selected letter again clears the selection.
	selected := letter
	if st.SelectedAnswer == letter {
		selected = ""
	}

	if !sess.Machine.UpdateDraft(selected, st.DontKnow, st.NotSure) {
		return
	}

	if err := h.editToQuestion(cb, sess); err != nil {
		h.logger.Error("question render failed", zap.Error(err))
	}
}

func (h *Handler) handleFlagCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	if len(params) == 0 {
		return
	}

	sess := h.trainer.Session(ctx, userID)

	// The bookmark is persistent question meta, not round draft state,
	// so it stays togglable after the answer is revealed.
	if params[0] == flagBookmark {
		id, ok := sess.Machine.CurrentQuestionID()
		if !ok {
			h.answerCallback(cb.ID, msgNoActiveRound)
			return
		}
		sess.Store.SetFlag(id, !sess.Store.Meta(id).Flagged)
		if err := h.editToQuestion(cb, sess); err != nil {
			h.logger.Error("question render failed", zap.Error(err))
		}
		return
	}

	st, ok := sess.Machine.CurrentState()
	if !ok {
		h.answerCallback(cb.ID, msgNoActiveRound)
		return
	}

	dontKnow, notSure := st.DontKnow, st.NotSure
	switch params[0] {
	case flagDontKnow:
		dontKnow = !dontKnow
	case flagNotSure:
		notSure = !notSure
	default:
		return
	}

	if !sess.Machine.UpdateDraft(st.SelectedAnswer, dontKnow, notSure) {
		return
	}

	if err := h.editToQuestion(cb, sess); err != nil {
		h.logger.Error("question render failed", zap.Error(err))
	}
}

func (h *Handler) handleNavCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	if len(params) == 0 {
		return
	}

	sess := h.trainer.Session(ctx, userID)

	switch params[0] {
	case navPrev:
		if sess.Machine.Retreat() {
			if err := h.editToQuestion(cb, sess); err != nil {
				h.logger.Error("question render failed", zap.Error(err))
			}
		}

	case navNext:
		st, ok := sess.Machine.CurrentState()
		if !ok {
			h.answerCallback(cb.ID, msgNoActiveRound)
			return
		}

		res := sess.Machine.Advance(st.SelectedAnswer)
		switch {
		case res.Completed:
			h.editToResults(cb, sess)
		case res.Moved || res.Checked:
			if err := h.editToQuestion(cb, sess); err != nil {
				h.logger.Error("question render failed", zap.Error(err))
			}
		default:
			h.answerCallback(cb.ID, msgSelectAnswer)
		}

	case navExit:
		sess.Machine.Exit()
		h.editTo(cb, msgWelcome, buildMenuKeyboard())
	}
}

func (h *Handler) handleReviewCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	sess := h.trainer.Session(ctx, userID)

	// Bare action opens the review picker.
	if len(params) == 0 {
		counts := h.reviewCounts(sess)
		total := 0
		for _, n := range counts {
			total += n
		}
		if total == 0 {
			h.editTo(cb, msgNoReviewBase, buildMenuKeyboard())
			return
		}

		text := "<b>Повторение</b>\n\nВыберите набор вопросов:"
		if stats, ok := sess.Machine.BaseStats(); ok {
			text = fmt.Sprintf(msgReviewMenu, "Основной раунд", stats.Correct, stats.Total)
		}
		h.editTo(cb, text, buildResultsKeyboard(counts))
		return
	}

	typ := entities.RoundType(params[0])
	if !typ.IsReview() {
		return
	}

	if err := h.trainer.StartReview(ctx, userID, typ); err != nil {
		h.editTo(cb, msgNoQuestions, buildMenuKeyboard())
		return
	}

	if err := h.editToQuestion(cb, sess); err != nil {
		h.logger.Error("question render failed", zap.Error(err))
	}
}

func (h *Handler) handleSyncCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	sess := h.trainer.Session(ctx, userID)

	if len(params) > 0 && params[0] == syncNewCode {
		code, err := h.trainer.NewShareCode(ctx, userID)
		if err != nil {
			h.logger.Error("share code failed", zap.Int64("user_id", userID), zap.Error(err))
			h.editTo(cb, msgInternalError, buildSyncKeyboard())
			return
		}
		h.editTo(cb, formatShareCode(code), buildSyncKeyboard())
		return
	}

	status := h.trainer.SyncStatus(ctx, userID)
	h.editTo(cb, formatSync(status, sess.ProfileID), buildSyncKeyboard())
}

func (h *Handler) handleResetCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, userID int64, params []string) {
	if len(params) == 0 {
		return
	}

	switch params[0] {
	case resetConfirm:
		h.trainer.Reset(ctx, userID)
		h.editTo(cb, msgResetDone, buildMenuKeyboard())
	case resetCancel:
		h.editTo(cb, msgResetCancelled, buildMenuKeyboard())
	}
}

// editTo redraws the callback's message with new text and keyboard.
func (h *Handler) editTo(cb *tgbotapi.CallbackQuery, text string, kb tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = &kb
	h.send(edit)
}

// answerCallback clears the user's "clock" on the tapped button,
// optionally with a popup text.
func (h *Handler) answerCallback(id, text string) {
	answer := tgbotapi.NewCallback(id, text)
	if _, err := h.bot.Request(answer); err != nil {
		h.logger.Debug("callback answer error", zap.Error(err))
	}
}
