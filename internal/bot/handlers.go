package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/questionbot/internal/database"
	"github.com/example/questionbot/internal/quiz"
	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	textRegisterFirst  = "Сначала используй команду /start для регистрации."
	textError          = "Произошла ошибка. Попробуйте позже."
	textErrorShort     = "Произошла ошибка"
	textLoading        = "📝 Загружаю вопрос для тебя..."
	textLoadingNext    = "📝 Загружаю следующий вопрос..."
	textChooseSubject  = "📚 Выбери предмет для подготовки:"
	textChooseTime     = "⏰ Выбери время для ежедневных уведомлений:"
	textSettings       = "⚙️ Настройки:"
	textMainMenu       = "Главное меню"
	textPickAction     = "Выбери действие на клавиатуре ниже 👇"
	textUnknownCommand = "Неизвестная команда. Используй /help, чтобы увидеть список команд."
	textUseButtons     = "Выбери вариант ответа кнопками под вопросом."
	textNotFound       = "Вопрос не найден"
	textBadOption      = "Такого варианта нет"
	textBadSubject     = "Неизвестный предмет"
	textBadTime        = "Это время недоступно"
	defaultUsername    = "Пользователь"

	textHelp = `📖 Список команд:

/start - Регистрация и приветствие
/help - Показать эту справку
/subject - Выбрать предмет для подготовки
/time - Изменить время уведомлений
/today - Получить вопрос прямо сейчас
/progress - Статистика ответов
/stop - Приостановить уведомления
/resume - Возобновить уведомления

💡 Совет: Используй кнопки внизу для быстрого доступа к функциям!`
)

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(ctx, message)
	case "help":
		b.handleHelp(ctx, message.Chat.ID)
	case "subject":
		b.handleSubject(ctx, message.Chat.ID)
	case "time":
		b.handleTime(ctx, message.Chat.ID)
	case "today":
		b.handleToday(ctx, message.From.ID, message.Chat.ID, textLoading)
	case "progress":
		b.handleProgress(ctx, message.From.ID, message.Chat.ID)
	case "stop":
		b.handleActive(ctx, message.From.ID, message.Chat.ID, false)
	case "resume":
		b.handleActive(ctx, message.From.ID, message.Chat.ID, true)
	default:
		b.reply(ctx, message.Chat.ID, textUnknownCommand)
	}
}

// handleText covers main keyboard buttons; any other text answers the
// latest pending open question.
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch strings.TrimSpace(message.Text) {
	case "":
		return
	case buttonToday:
		b.handleToday(ctx, message.From.ID, chatID, textLoading)
	case buttonProgress:
		b.handleProgress(ctx, message.From.ID, chatID)
	case buttonSubject:
		b.handleSubject(ctx, chatID)
	case buttonTime:
		b.handleTime(ctx, chatID)
	case buttonStop:
		b.handleActive(ctx, message.From.ID, chatID, false)
	case buttonResume:
		b.handleActive(ctx, message.From.ID, chatID, true)
	case buttonHelp:
		b.handleHelp(ctx, chatID)
	case buttonSettings:
		b.send(ctx, chatID, telegram.Content{Text: textSettings, Controls: settingsControls()})
	default:
		b.handleOpenAnswer(ctx, message)
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID, chatID := message.From.ID, message.Chat.ID
	username := displayName(message.From)

	user, err := b.users.GetByID(ctx, userID)
	switch {
	case errors.Is(err, database.ErrUserNotFound):
		user = &models.User{
			ID:               userID,
			ChatID:           chatID,
			Username:         username,
			Subject:          b.cfg.DefaultSubject,
			NotificationTime: b.cfg.DefaultTime,
		}
		if err := b.users.Create(ctx, user); err != nil {
			// A concurrent /start may have registered the user already
			existing, getErr := b.users.GetByID(ctx, userID)
			if getErr != nil {
				b.fail(ctx, chatID, "failed to register user", userID, err)
				return
			}
			user = existing
		} else {
			b.log.Info("user registered", "user_id", userID, "subject", user.Subject, "time", user.NotificationTime)
		}
	case err != nil:
		b.fail(ctx, chatID, "failed to get user", userID, err)
		return
	default:
		if err := b.users.UpdateUsername(ctx, userID, chatID, username); err != nil {
			b.fail(ctx, chatID, "failed to update user", userID, err)
			return
		}
		if err := b.users.UpdateActive(ctx, userID, true); err != nil {
			b.fail(ctx, chatID, "failed to activate user", userID, err)
			return
		}
	}

	subjectName, ok := b.cfg.SubjectName(user.Subject)
	if !ok {
		subjectName = user.Subject
	}

	text := fmt.Sprintf(`👋 Привет, %s!

Я бот "ВопросДня" - твой помощник в подготовке к ЕГЭ!

📚 Твой текущий предмет: %s
⏰ Время уведомлений: %s

Я буду присылать тебе по одному вопросу для ЕГЭ каждый день в выбранное время.

Используй кнопки ниже или команды:
/subject - выбрать предмет
/time - изменить время уведомлений
/today - получить вопрос прямо сейчас
/progress - посмотреть статистику
/help - список всех команд

Готов начать подготовку? 🚀`, username, subjectName, user.NotificationTime)

	b.reply(ctx, chatID, text)
}

func (b *Bot) handleHelp(ctx context.Context, chatID int64) {
	b.reply(ctx, chatID, textHelp)
}

func (b *Bot) handleSubject(ctx context.Context, chatID int64) {
	b.send(ctx, chatID, telegram.Content{Text: textChooseSubject, Controls: subjectControls(b.cfg)})
}

func (b *Bot) handleTime(ctx context.Context, chatID int64) {
	b.send(ctx, chatID, telegram.Content{Text: textChooseTime, Controls: timeControls(b.cfg)})
}

func (b *Bot) handleToday(ctx context.Context, userID, chatID int64, loading string) {
	user, ok := b.registeredUser(ctx, userID, chatID)
	if !ok {
		return
	}
	b.send(ctx, chatID, telegram.Content{Text: loading})
	if err := b.delivery.Deliver(ctx, *user); err != nil {
		b.fail(ctx, chatID, "failed to deliver question on demand", userID, err)
	}
}

func (b *Bot) handleProgress(ctx context.Context, userID, chatID int64) {
	if _, ok := b.registeredUser(ctx, userID, chatID); !ok {
		return
	}
	stats, err := b.answers.Progress(ctx, userID)
	if err != nil {
		b.fail(ctx, chatID, "failed to get progress", userID, err)
		return
	}
	b.reply(ctx, chatID, progressText(stats))
}

func progressText(stats models.AggregateStats) string {
	var text strings.Builder
	text.WriteString("📊 Твоя статистика:\n\n")
	fmt.Fprintf(&text, "📝 Всего ответов: %d\n", stats.Total)
	fmt.Fprintf(&text, "✅ Правильных ответов: %d\n", stats.Correct)
	fmt.Fprintf(&text, "❌ Неправильных: %d\n", stats.Incorrect())
	if n := stats.Ungraded(); n > 0 {
		fmt.Fprintf(&text, "💬 Открытых (без оценки): %d\n", n)
	}
	fmt.Fprintf(&text, "📈 Процент правильных: %d%%\n\n", stats.Percent())
	text.WriteString("Продолжай в том же духе! 💪")
	return text.String()
}

func (b *Bot) handleActive(ctx context.Context, userID, chatID int64, active bool) {
	user, ok := b.registeredUser(ctx, userID, chatID)
	if !ok {
		return
	}
	if err := b.users.UpdateActive(ctx, userID, active); err != nil {
		b.fail(ctx, chatID, "failed to change delivery state", userID, err)
		return
	}
	if active {
		b.reply(ctx, chatID, "✅ Уведомления возобновлены!\n⏰ Время уведомлений: "+user.NotificationTime)
		return
	}
	b.reply(ctx, chatID, `⏸ Уведомления приостановлены. Используй кнопку "`+buttonResume+`" или команду /resume, чтобы возобновить.`)
}

// handleOpenAnswer submits free text as the answer to the latest
// unanswered delivery. Choice questions are answered with buttons only.
func (b *Bot) handleOpenAnswer(ctx context.Context, message *tgbotapi.Message) {
	userID, chatID := message.From.ID, message.Chat.ID

	sq, err := b.pending.GetLatestUnanswered(ctx, userID)
	if errors.Is(err, database.ErrSentQuestionNotFound) {
		return
	}
	if err != nil {
		b.log.Error("failed to find pending question", "user_id", userID, "error", err)
		return
	}

	if err := b.cfg.ValidateSubject(sq.Subject); err != nil {
		b.log.Info("ignoring text for unconfigured subject", "user_id", userID, "subject", sq.Subject)
		return
	}

	feedback, err := b.answers.Submit(ctx, userID, sq.Subject, sq.QuestionID, -1)
	switch {
	case errors.Is(err, quiz.ErrInvalidOption):
		b.send(ctx, chatID, telegram.Content{Text: textUseButtons})
		return
	case errors.Is(err, quiz.ErrQuestionNotFound):
		// Removed from the bank since delivery; plain text is not a reply then
		b.log.Info("ignoring text for removed question", "user_id", userID, "subject", sq.Subject, "question_id", sq.QuestionID)
		return
	case err != nil:
		b.fail(ctx, chatID, "failed to record open answer", userID, err)
		return
	}

	reveal, err := b.answers.Reveal(ctx, sq.Subject, sq.QuestionID)
	if err != nil {
		b.send(ctx, chatID, telegram.Content{Text: feedback.Text})
		return
	}
	b.send(ctx, chatID, telegram.Content{Text: feedback.Text + "\n\n" + reveal, HTML: true, Controls: quiz.NextControls()})
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil || query.Message == nil || query.Message.Chat == nil {
		b.ack(ctx, query.ID, "")
		return
	}
	userID := query.From.ID
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := query.Data

	switch {
	case strings.HasPrefix(data, callbackSetSubject):
		b.setSubject(ctx, query, strings.TrimPrefix(data, callbackSetSubject))
	case strings.HasPrefix(data, callbackSetTime):
		b.setTime(ctx, query, strings.TrimPrefix(data, callbackSetTime))
	case data == callbackMenuSubject:
		b.ack(ctx, query.ID, "")
		b.handleSubject(ctx, chatID)
	case data == callbackMenuTime:
		b.ack(ctx, query.ID, "")
		b.handleTime(ctx, chatID)
	case data == callbackMenuProgress:
		b.ack(ctx, query.ID, "")
		b.handleProgress(ctx, userID, chatID)
	case data == callbackMenuBack:
		b.ack(ctx, query.ID, "")
		if err := b.msg.EditMessage(ctx, chatID, messageID, telegram.Content{Text: textMainMenu}); err != nil {
			b.log.Warn("failed to edit settings menu", "user_id", userID, "error", err)
		}
		b.reply(ctx, chatID, textPickAction)
	case data == quiz.CallbackNext:
		b.ack(ctx, query.ID, "")
		b.handleToday(ctx, userID, chatID, textLoadingNext)
	case strings.HasPrefix(data, quiz.CallbackAnswer+":"):
		b.answer(ctx, query)
	case strings.HasPrefix(data, quiz.CallbackReveal+":"):
		b.reveal(ctx, query)
	default:
		b.log.Warn("unknown callback", "user_id", userID, "data", data)
		b.ack(ctx, query.ID, "")
	}
}

func (b *Bot) setSubject(ctx context.Context, query *tgbotapi.CallbackQuery, key string) {
	if err := b.cfg.ValidateSubject(key); err != nil {
		b.ack(ctx, query.ID, textBadSubject)
		return
	}
	name, _ := b.cfg.SubjectName(key)
	b.setPreference(ctx, query, "Предмет выбран: "+name, "Предмет изменен!", func() error {
		return b.users.UpdateSubject(ctx, query.From.ID, key)
	})
}

func (b *Bot) setTime(ctx context.Context, query *tgbotapi.CallbackQuery, at string) {
	if err := b.cfg.ValidateTime(at); err != nil {
		b.ack(ctx, query.ID, textBadTime)
		return
	}
	b.setPreference(ctx, query, "Время уведомлений установлено: "+at, "Настройки сохранены!", func() error {
		return b.users.UpdateTime(ctx, query.From.ID, at)
	})
}

func (b *Bot) setPreference(ctx context.Context, query *tgbotapi.CallbackQuery, done, saved string, update func() error) {
	chatID := query.Message.Chat.ID
	if err := update(); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			b.ack(ctx, query.ID, "")
			b.reply(ctx, chatID, textRegisterFirst)
			return
		}
		b.log.Error("failed to save preference", "user_id", query.From.ID, "error", err)
		b.ack(ctx, query.ID, textErrorShort)
		return
	}
	b.ack(ctx, query.ID, done)
	if err := b.msg.EditMessage(ctx, chatID, query.Message.MessageID, telegram.Content{Text: "✅ " + done}); err != nil {
		b.log.Warn("failed to edit preference menu", "user_id", query.From.ID, "error", err)
	}
	b.reply(ctx, chatID, saved)
}

func (b *Bot) answer(ctx context.Context, query *tgbotapi.CallbackQuery) {
	subject, questionID, option, ok := quiz.ParseAnswerData(query.Data)
	if !ok {
		b.ack(ctx, query.ID, textBadOption)
		return
	}
	if err := b.cfg.ValidateSubject(subject); err != nil {
		b.log.Warn("answer for unknown subject", "user_id", query.From.ID, "subject", subject)
		b.ack(ctx, query.ID, textBadSubject)
		return
	}

	feedback, err := b.answers.Submit(ctx, query.From.ID, subject, questionID, option)
	switch {
	case errors.Is(err, quiz.ErrQuestionNotFound):
		b.ack(ctx, query.ID, textNotFound)
		return
	case errors.Is(err, quiz.ErrInvalidOption):
		b.ack(ctx, query.ID, textBadOption)
		return
	case err != nil:
		b.log.Error("failed to record answer", "user_id", query.From.ID, "question_id", questionID, "error", err)
		b.ack(ctx, query.ID, textErrorShort)
		return
	}

	b.ack(ctx, query.ID, feedback.Text)
	b.replaceWithNext(ctx, query)
}

func (b *Bot) reveal(ctx context.Context, query *tgbotapi.CallbackQuery) {
	subject, questionID, ok := quiz.ParseRevealData(query.Data)
	if !ok {
		b.ack(ctx, query.ID, textNotFound)
		return
	}
	if err := b.cfg.ValidateSubject(subject); err != nil {
		b.log.Warn("reveal for unknown subject", "user_id", query.From.ID, "subject", subject)
		b.ack(ctx, query.ID, textBadSubject)
		return
	}
	text, err := b.answers.Reveal(ctx, subject, questionID)
	if err != nil {
		b.ack(ctx, query.ID, textNotFound)
		return
	}
	b.ack(ctx, query.ID, "")
	b.send(ctx, query.Message.Chat.ID, telegram.Content{Text: text, HTML: true})
	b.replaceWithNext(ctx, query)
}

func (b *Bot) replaceWithNext(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if err := b.msg.EditControls(ctx, query.Message.Chat.ID, query.Message.MessageID, quiz.NextControls()); err != nil {
		b.log.Warn("failed to replace question controls", "user_id", query.From.ID, "error", err)
	}
}

// registeredUser loads the user or asks them to /start first
func (b *Bot) registeredUser(ctx context.Context, userID, chatID int64) (*models.User, bool) {
	user, err := b.users.GetByID(ctx, userID)
	if errors.Is(err, database.ErrUserNotFound) {
		b.reply(ctx, chatID, textRegisterFirst)
		return nil, false
	}
	if err != nil {
		b.fail(ctx, chatID, "failed to get user", userID, err)
		return nil, false
	}
	return user, true
}

// reply sends plain text with the main keyboard attached
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.send(ctx, chatID, telegram.Content{Text: text, Keyboard: mainKeyboard()})
}

func (b *Bot) send(ctx context.Context, chatID int64, content telegram.Content) {
	if _, err := b.msg.SendMessage(ctx, chatID, content); err != nil {
		b.log.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) ack(ctx context.Context, callbackID, text string) {
	if err := b.msg.AnswerInteraction(ctx, callbackID, text); err != nil {
		b.log.Warn("failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

// fail logs err and tells the user something went wrong
func (b *Bot) fail(ctx context.Context, chatID int64, msg string, userID int64, err error) {
	b.log.Error(msg, "user_id", userID, "error", err)
	b.reply(ctx, chatID, textError)
}

func displayName(from *tgbotapi.User) string {
	switch {
	case from.UserName != "":
		return from.UserName
	case from.FirstName != "":
		return from.FirstName
	default:
		return defaultUsername
	}
}
