package quiz

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
)

// User-facing texts
const (
	TextUnavailable = "❌ К сожалению, вопросы для этого предмета временно недоступны. Попробуйте позже или выберите другой предмет."
	TextReminder    = "⏰ Напоминание: ты еще не ответил на сегодняшний вопрос! Используй /today, чтобы получить его снова."
	TextCorrect     = "✅ Правильно! Отличная работа!"
	TextReceived    = "💡 Ответ получен!"

	labelReveal = "💡 Показать ответ"
	labelNext   = "➡️ Следующий вопрос"

	optionsPerRow = 2
)

// RenderQuestion builds the message for a question: prompt, numbered options
// and the interactive controls.
func RenderQuestion(q models.Question) telegram.Content {
	var text strings.Builder

	topic := q.Topic
	if topic == "" {
		topic = "Вопрос"
	}
	fmt.Fprintf(&text, "📚 <b>%s</b>\n\n%s\n", html.EscapeString(topic), html.EscapeString(q.Prompt))

	var controls [][]telegram.Control
	if q.IsChoice() {
		text.WriteString("\nВарианты ответов:\n")
		var row []telegram.Control
		for i, opt := range q.Options {
			fmt.Fprintf(&text, "%d. %s\n", i+1, html.EscapeString(opt))
			row = append(row, telegram.Control{Label: strconv.Itoa(i + 1), Data: AnswerData(q.Subject, q.ID, i)})
			if len(row) == optionsPerRow {
				controls = append(controls, row)
				row = nil
			}
		}
		if len(row) > 0 {
			controls = append(controls, row)
		}
	}
	controls = append(controls, []telegram.Control{{Label: labelReveal, Data: RevealData(q.Subject, q.ID)}})

	return telegram.Content{Text: text.String(), HTML: true, Controls: controls}
}

// RenderReveal builds the correct option, model answer and explanation
func RenderReveal(q models.Question) string {
	var text strings.Builder
	text.WriteString("💡 <b>Ответ и объяснение:</b>\n\n")

	if opt := q.CorrectOption(); opt != "" {
		fmt.Fprintf(&text, "✅ Правильный ответ: %s\n\n", html.EscapeString(opt))
	}
	if q.Answer != "" {
		text.WriteString(html.EscapeString(q.Answer))
	}
	if q.Explanation != "" {
		fmt.Fprintf(&text, "\n\n📖 <b>Объяснение:</b>\n%s", html.EscapeString(q.Explanation))
	}
	return strings.TrimRight(text.String(), "\n")
}

// NextControls replaces the question buttons once it was answered or revealed
func NextControls() [][]telegram.Control {
	return [][]telegram.Control{{{Label: labelNext, Data: CallbackNext}}}
}

func incorrectText(q models.Question) string {
	return "❌ Неправильно. Правильный ответ: " + q.CorrectOption()
}
