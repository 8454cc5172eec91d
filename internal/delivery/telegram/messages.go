// messages.go contains message templates and formatting functions for Telegram.

package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aliskhannn/exam-prep-bot/internal/domain/entities"
	"github.com/aliskhannn/exam-prep-bot/internal/round"
	"github.com/aliskhannn/exam-prep-bot/internal/service"
	syncx "github.com/aliskhannn/exam-prep-bot/internal/sync"
)

// Error messages.
const (
	msgInternalError    = "Что-то пошло не так. Попробуйте позже."
	msgNoQuestions      = "Нет доступных вопросов для этого режима."
	msgNoActiveRound    = "Сейчас нет активного раунда. Начните с /exams или /adaptive."
	msgNoReviewBase     = "Повторение доступно после завершения основного раунда. Начните с /exams."
	msgNoExamSets       = "Билеты ещё не сформированы. Попробуйте позже."
	msgUnknownExam      = "Такого билета нет."
	msgSelectAnswer     = "Сначала выберите ответ."
	msgInvalidShareCode = "Используйте: /code &lt;код синхронизации&gt;."
	msgUnknownCommand   = "Неизвестная команда. Нажмите /help для списка команд."
)

const msgWelcome = `<b>Экзаменационный тренажёр</b>

Бот поможет подготовиться к экзамену:

📚 <b>Билеты</b> — вопросы банка разбиты на билеты, решайте в режиме учёбы или на время.
🧠 <b>Адаптивная тренировка</b> — интервальное повторение подбирает вопросы, которые пора закрепить.
🔁 <b>Повторение</b> — вернитесь к ошибкам и отмеченным вопросам прошлого раунда.
📊 <b>Прогресс</b> — статистика освоения и история раундов.
☁️ <b>Синхронизация</b> — продолжайте с любого устройства по коду.

Выберите режим:`

const msgHelp = `<b>Команды</b>

/exams — список билетов
/adaptive — адаптивная тренировка
/review — повторение прошлого раунда
/note &lt;текст&gt; — заметка к текущему вопросу
/progress — мой прогресс
/sync — синхронизация между устройствами
/code &lt;код&gt; — подключить код с другого устройства
/reset — сбросить прогресс
/help — эта справка`

const (
	msgNoteSaved   = "📝 Заметка сохранена. Она будет видна под вопросом."
	msgNoteCleared = "📝 Заметка удалена."
)

const (
	msgResetConfirm   = "Удалить весь прогресс? Это действие нельзя отменить."
	msgResetDone      = "Прогресс сброшен. Билеты сформированы заново."
	msgResetCancelled = "Сброс отменён."
)

const msgExamList = "<b>Билеты</b>\n\nВыберите билет. ✅ — решён в режиме учёбы, 🏆 — сдан на время."

const msgExamModePrompt = "<b>Билет %d</b> — %d вопросов.\n\nВыберите режим:"

const msgReviewMenu = `<b>Повторение</b>

По итогам раунда «%s» (%d из %d):`

// Round-type labels for the review menu and history.
var roundTypeLabels = map[entities.RoundType]string{
	entities.RoundBase:           "Основной раунд",
	entities.RoundReviewWrong:    "Ошибки",
	entities.RoundReviewNotSure:  "Не уверен",
	entities.RoundReviewDontKnow: "Не знаю",
	entities.RoundReviewAll:      "Все вопросы",
	entities.RoundReviewWeak:     "Слабые места",
	entities.RoundReviewFlagged:  "Отмеченные",
}

var modeLabels = map[entities.Mode]string{
	entities.ModeLearning: "учёба",
	entities.ModeExam:     "экзамен",
	entities.ModeAdaptive: "тренировка",
}

var syncStatusLabels = map[syncx.Status]string{
	syncx.StatusLoading:   "⏳ загрузка",
	syncx.StatusSyncing:   "🔄 синхронизация",
	syncx.StatusConnected: "✅ подключено",
	syncx.StatusOffline:   "📴 офлайн",
	syncx.StatusError:     "⚠️ ошибка",
}

// formatQuestion renders the current question screen. revealed controls
// whether per-answer correctness marks are shown; meta carries the
// question's persistent bookmark and note.
func formatQuestion(
	q *entities.Question,
	st entities.QuestionState,
	order []string,
	index, total int,
	mode entities.Mode,
	timeLeft time.Duration,
	meta entities.QuestionMeta,
	revealed bool,
) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>Вопрос %d/%d</b> · %s", index+1, total, modeLabels[mode])
	if timeLeft > 0 {
		fmt.Fprintf(&sb, " · ⏱ %s", formatDuration(timeLeft))
	}
	if meta.Flagged {
		sb.WriteString(" · ⭐️")
	}
	sb.WriteString("\n\n")
	sb.WriteString(html.EscapeString(q.Text))
	sb.WriteString("\n\n")

	for _, letter := range order {
		mark := answerMark(q, st, letter, revealed)
		fmt.Fprintf(&sb, "%s <b>%s.</b> %s\n", mark, letter, html.EscapeString(q.Answers[letter]))
	}

	if meta.Note != "" {
		fmt.Fprintf(&sb, "\n📝 <i>%s</i>\n", html.EscapeString(meta.Note))
	}

	if revealed && st.Status == entities.StatusWrong {
		fmt.Fprintf(&sb, "\n❌ Неверно. Правильный ответ: <b>%s</b>", html.EscapeString(q.CorrectText()))
	}
	if revealed && st.Status == entities.StatusCorrect {
		sb.WriteString("\n✅ Верно!")
	}

	return sb.String()
}

func answerMark(q *entities.Question, st entities.QuestionState, letter string, revealed bool) string {
	if revealed {
		switch {
		case q.IsCorrectLetter(letter):
			return "✅"
		case st.SelectedAnswer == letter:
			return "❌"
		default:
			return "▫️"
		}
	}
	if st.SelectedAnswer == letter {
		return "🔘"
	}
	return "▫️"
}

// formatResults renders the round completion screen.
func formatResults(typ entities.RoundType, mode entities.Mode, stats round.Stats) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>%s завершён</b> · %s\n\n", roundTypeLabels[typ], modeLabels[mode])
	fmt.Fprintf(&sb, "Правильных ответов: <b>%d из %d</b> (%.0f%%)\n", stats.Correct, stats.Total, stats.Percent)
	if stats.AvgTimeSec > 0 {
		fmt.Fprintf(&sb, "Среднее время на вопрос: %.0f сек.\n", stats.AvgTimeSec)
	}

	if typ == entities.RoundBase {
		sb.WriteString("\n")
		if round.IsPassed(stats.Correct, stats.Total) {
			sb.WriteString("🏆 <b>Экзамен сдан!</b>")
		} else {
			fmt.Fprintf(&sb, "📉 Для сдачи нужно %.0f%%. Повторите ошибки и попробуйте ещё раз.", round.PassThresholdPercent)
		}
	}

	return sb.String()
}

// formatProgress renders the progress overview.
func formatProgress(s *service.ProgressSummary) string {
	var sb strings.Builder

	sb.WriteString("<b>Мой прогресс</b>\n\n")
	fmt.Fprintf(&sb, "🟢 Освоено: <b>%d</b>\n", s.Mastery.Mastered)
	fmt.Fprintf(&sb, "🟡 Изучается: <b>%d</b>\n", s.Mastery.Learning)
	fmt.Fprintf(&sb, "🔴 Сложные: <b>%d</b>\n", s.Mastery.Struggling)
	fmt.Fprintf(&sb, "⚪️ Не начато: <b>%d</b>\n", s.Mastery.NotStarted)

	if s.DueCount > 0 {
		fmt.Fprintf(&sb, "\n🎯 Вопросов к повторению: <b>%d</b>\n", s.DueCount)
	}

	if s.TotalRounds > 0 {
		fmt.Fprintf(&sb, "\nРаундов пройдено: <b>%d</b>, сдано: <b>%d</b>\n", s.TotalRounds, s.PassedRounds)
		fmt.Fprintf(&sb, "Средний результат: <b>%.0f%%</b>\n", s.AvgPercent)
	}

	if len(s.LastEntries) > 0 {
		sb.WriteString("\n<b>Последние раунды</b>\n")
		for _, e := range s.LastEntries {
			ts := time.UnixMilli(e.Date).Format("02.01 15:04")
			fmt.Fprintf(&sb, "• %s — %s, %d/%d (%.0f%%)\n", ts, modeLabels[entities.Mode(e.Mode)], e.Correct, e.Total, e.Percent)
		}
	}

	return sb.String()
}

// formatSync renders the sync status screen.
func formatSync(status syncx.Status, profileID string) string {
	var sb strings.Builder

	sb.WriteString("<b>Синхронизация</b>\n\n")
	fmt.Fprintf(&sb, "Статус: %s\n", syncStatusLabels[status])
	fmt.Fprintf(&sb, "Код профиля: <code>%s</code>\n\n", html.EscapeString(profileID))
	sb.WriteString("Чтобы продолжить на другом устройстве, отправьте там:\n")
	fmt.Fprintf(&sb, "<code>/code %s</code>\n\n", html.EscapeString(profileID))
	sb.WriteString("Новый код отвяжет текущий профиль от старого кода.")

	return sb.String()
}

func formatShareCode(code string) string {
	return fmt.Sprintf("Новый код создан:\n<code>%s</code>\n\nОтправьте <code>/code %s</code> на другом устройстве.", code, code)
}

func formatReminder(dueCount int) string {
	return fmt.Sprintf("🎯 Пора повторить! Вопросов к повторению: <b>%d</b>.", dueCount)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
