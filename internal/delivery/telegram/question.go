// question.go renders the active round: question screens and results.

package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/storage"
)

// questionView renders the current question of the session's round.
func (h *Handler) questionView(sess *storage.Session) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	m := sess.Machine

	q, err := m.CurrentQuestion()
	if err != nil {
		return "", nil, fmt.Errorf("current question: %w", err)
	}

	st, ok := m.CurrentState()
	if !ok {
		return "", nil, fmt.Errorf("no current question state")
	}

	order, err := m.AnswerOrder(q.ID)
	if err != nil {
		return "", nil, fmt.Errorf("answer order: %w", err)
	}

	index, total := m.Position()
	mode := m.Mode()
	meta := sess.Store.Meta(q.ID)
	revealed := mode.Immediate() && st.Terminal()

	text := formatQuestion(q, st, order, index, total, mode, m.TimeLeft(), meta, revealed)
	kb := buildQuestionKeyboard(order, st, mode, index, total, meta.Flagged, revealed)
	return text, &kb, nil
}

// resultsView renders the completion screen of the just-finished round
// with review options for the base round.
func (h *Handler) resultsView(sess *storage.Session) (string, *tgbotapi.InlineKeyboardMarkup) {
	m := sess.Machine

	typ := m.RoundType()
	mode := m.Mode()
	stats := m.ComputeStats()

	text := formatResults(typ, mode, stats)
	kb := buildResultsKeyboard(h.reviewCounts(sess))
	return text, &kb
}

// reviewCounts collects available review-set sizes for the results and
// review-menu keyboards.
func (h *Handler) reviewCounts(sess *storage.Session) map[entities.RoundType]int {
	counts := make(map[entities.RoundType]int)

	for _, typ := range []entities.RoundType{
		entities.RoundReviewWrong,
		entities.RoundReviewNotSure,
		entities.RoundReviewDontKnow,
		entities.RoundReviewAll,
	} {
		counts[typ] = len(sess.Machine.ReviewSet(typ))
	}

	counts[entities.RoundReviewFlagged] = len(sess.Store.FlaggedQuestions())
	counts[entities.RoundReviewWeak] = len(h.stats.WeakestQuestions(sess.Store, weakReviewLimit))
	return counts
}

// sendQuestion sends the current question as a new message.
func (h *Handler) sendQuestion(chatID int64, sess *storage.Session) error {
	text, kb, err := h.questionView(sess)
	if err != nil {
		return err
	}

	msg := newHTMLMessage(chatID, text)
	msg.ReplyMarkup = *kb
	h.send(msg)
	return nil
}

// editToQuestion redraws the current question in place of the message
// that carried the tapped button.
func (h *Handler) editToQuestion(cb *tgbotapi.CallbackQuery, sess *storage.Session) error {
	text, kb, err := h.questionView(sess)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	h.send(edit)
	return nil
}

// editToResults redraws the message into the round results screen.
func (h *Handler) editToResults(cb *tgbotapi.CallbackQuery, sess *storage.Session) {
	text, kb := h.resultsView(sess)

	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	h.send(edit)
}
