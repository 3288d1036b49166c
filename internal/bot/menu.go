package bot

import (
	"github.com/example/questionbot/internal/config"
	"github.com/example/questionbot/internal/telegram"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Main keyboard buttons
const (
	buttonToday    = "📝 Вопрос сейчас"
	buttonProgress = "📊 Статистика"
	buttonSubject  = "📚 Выбрать предмет"
	buttonTime     = "⏰ Изменить время"
	buttonStop     = "⏸ Приостановить"
	buttonResume   = "▶️ Возобновить"
	buttonSettings = "⚙️ Настройки"
	buttonHelp     = "ℹ️ Помощь"
	buttonBack     = "◀️ Назад"
)

// Callback data for settings and preference menus
const (
	callbackSetSubject   = "set_subject_"
	callbackSetTime      = "set_time_"
	callbackMenuSubject  = "menu_subject"
	callbackMenuTime     = "menu_time"
	callbackMenuProgress = "menu_progress"
	callbackMenuBack     = "menu_back"
)

// mainKeyboard is the persistent reply keyboard under the input field
func mainKeyboard() *tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonToday), tgbotapi.NewKeyboardButton(buttonProgress)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonSubject), tgbotapi.NewKeyboardButton(buttonTime)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonStop), tgbotapi.NewKeyboardButton(buttonResume)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonSettings), tgbotapi.NewKeyboardButton(buttonHelp)),
	)
	kb.ResizeKeyboard = true
	return &kb
}

func subjectControls(cfg *config.Config) [][]telegram.Control {
	rows := make([][]telegram.Control, 0, len(cfg.Subjects))
	for _, s := range cfg.Subjects {
		rows = append(rows, []telegram.Control{{Label: "📚 " + s.Name, Data: callbackSetSubject + s.Key}})
	}
	return rows
}

func timeControls(cfg *config.Config) [][]telegram.Control {
	rows := make([][]telegram.Control, 0, len(cfg.AvailableTimes))
	for _, t := range cfg.AvailableTimes {
		rows = append(rows, []telegram.Control{{Label: "🕐 " + t, Data: callbackSetTime + t}})
	}
	return rows
}

func settingsControls() [][]telegram.Control {
	return [][]telegram.Control{
		{{Label: buttonSubject, Data: callbackMenuSubject}, {Label: buttonTime, Data: callbackMenuTime}},
		{{Label: buttonProgress, Data: callbackMenuProgress}},
		{{Label: buttonBack, Data: callbackMenuBack}},
	}
}
