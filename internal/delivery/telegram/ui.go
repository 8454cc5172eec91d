package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/progress"
)

// buildMenuKeyboard builds the main menu keyboard.
func buildMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 Билеты", buildExamListCallback()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧠 Адаптивная тренировка", buildAdaptiveCallback()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Повторение", buildReviewMenuCallback()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Мой прогресс", buildProgressCallback()),
			tgbotapi.NewInlineKeyboardButtonData("☁️ Синхронизация", buildSyncCallback()),
		),
	)
}

// buildExamListKeyboard lists the exam sets, two per row, with
// completion marks per mode.
func buildExamListKeyboard(store *progress.Store, count int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton

	for i := 0; i < count; i++ {
		label := fmt.Sprintf("Билет %d", i+1)
		if store.IsExamCompleted(i, entities.ModeExam) {
			label += " 🏆"
		} else if store.IsExamCompleted(i, entities.ModeLearning) {
			label += " ✅"
		}

		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, buildExamCallback(i)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Меню", buildMenuCallback()),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildExamModeKeyboard builds the mode picker for one exam set.
func buildExamModeKeyboard(index int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 Учёба", buildExamModeCallback(index, examLearn)),
			tgbotapi.NewInlineKeyboardButtonData("⏱ На время", buildExamModeCallback(index, examTimed)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("« К билетам", buildExamListCallback()),
		),
	)
}

// buildQuestionKeyboard builds the keyboard for the current question.
// revealed means the answer has been checked and can no longer change;
// flagged is the question's persistent bookmark state.
func buildQuestionKeyboard(
	order []string,
	st entities.QuestionState,
	mode entities.Mode,
	index, total int,
	flagged, revealed bool,
) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if !revealed {
		var row []tgbotapi.InlineKeyboardButton
		for _, letter := range order {
			label := letter
			if st.SelectedAnswer == letter {
				label = "🔘 " + letter
			}
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, buildAnswerCallback(letter)))
			if len(row) == 3 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}

		dontKnow := "🤷 Не знаю"
		if st.DontKnow {
			dontKnow += " ✅"
		}
		notSure := "🤔 Не уверен"
		if st.NotSure {
			notSure += " ✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(dontKnow, buildFlagCallback(flagDontKnow)),
			tgbotapi.NewInlineKeyboardButtonData(notSure, buildFlagCallback(flagNotSure)),
		))
	}

	bookmark := "⭐️ Отметить"
	if flagged {
		bookmark = "⭐️ Отмечено ✅"
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(bookmark, buildFlagCallback(flagBookmark)),
	))

	var nav []tgbotapi.InlineKeyboardButton
	if index > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️", buildNavCallback(navPrev)))
	}

	forward := forwardLabel(mode, index, total, revealed)
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(forward, buildNavCallback(navNext)))
	rows = append(rows, nav)

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚪 Выйти", buildNavCallback(navExit)),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// forwardLabel picks the main action button caption. Immediate modes
// check first, then move; exam mode checks and moves in one step.
func forwardLabel(mode entities.Mode, index, total int, revealed bool) string {
	if mode.Immediate() && !revealed {
		return "Проверить"
	}
	if index+1 >= total {
		return "Завершить 🏁"
	}
	return "Далее ▶️"
}

// buildResultsKeyboard offers review sub-rounds over the finished base
// round. counts maps review type to available question count; empty
// sets get no button.
func buildResultsKeyboard(counts map[entities.RoundType]int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	type entry struct {
		typ   entities.RoundType
		label string
	}
	order := []entry{
		{entities.RoundReviewWrong, "❌ Ошибки"},
		{entities.RoundReviewNotSure, "🤔 Не уверен"},
		{entities.RoundReviewDontKnow, "🤷 Не знаю"},
		{entities.RoundReviewAll, "🔁 Все вопросы"},
		{entities.RoundReviewFlagged, "⭐️ Отмеченные"},
		{entities.RoundReviewWeak, "📉 Слабые места"},
	}

	for _, e := range order {
		n := counts[e.typ]
		if n == 0 {
			continue
		}
		label := fmt.Sprintf("%s (%d)", e.label, n)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, buildReviewCallback(string(e.typ))),
		))
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📋 Меню", buildMenuCallback()),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// buildProgressKeyboard builds keyboard for the progress screen.
func buildProgressKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", buildProgressCallback()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Тренировка", buildAdaptiveCallback()),
			tgbotapi.NewInlineKeyboardButtonData("📋 Меню", buildMenuCallback()),
		),
	)
}

// buildSyncKeyboard builds keyboard for the sync screen.
func buildSyncKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Новый код", buildSyncNewCodeCallback()),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Обновить", buildSyncCallback()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Меню", buildMenuCallback()),
		),
	)
}

// buildResetKeyboard builds the reset confirmation keyboard.
func buildResetKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Да, сбросить", buildResetConfirmCallback()),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", buildResetCancelCallback()),
		),
	)
}

// buildReminderKeyboard builds keyboard for practice reminders.
func buildReminderKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Начать тренировку", buildAdaptiveCallback()),
		),
	)
}
