package telegram

// SendPracticeReminder nudges a user about overdue questions with a
// shortcut into adaptive training.
func (h *Handler) SendPracticeReminder(chatID int64, dueCount int) error {
	msg := newHTMLMessage(chatID, formatReminder(dueCount))
	msg.ReplyMarkup = buildReminderKeyboard()

	_, err := h.bot.Send(msg)
	return err
}
