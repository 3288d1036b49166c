package bot

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/example/questionbot/internal/config"
	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/internal/quiz"
	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateSource delivers incoming Telegram updates; *tgbotapi.BotAPI implements it
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Messenger is the outgoing side of the chat transport
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, content telegram.Content) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, content telegram.Content) error
	EditControls(ctx context.Context, chatID int64, messageID int, controls [][]telegram.Control) error
	AnswerInteraction(ctx context.Context, callbackID, text string) error
}

// UserStore handles registration and preferences
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateUsername(ctx context.Context, id, chatID int64, username string) error
	UpdateSubject(ctx context.Context, id int64, subject string) error
	UpdateTime(ctx context.Context, id int64, notificationTime string) error
	UpdateActive(ctx context.Context, id int64, active bool) error
}

// PendingLookup finds the delivery a free-text reply refers to
type PendingLookup interface {
	GetLatestUnanswered(ctx context.Context, userID int64) (*models.SentQuestion, error)
}

// Deliverer sends a question on demand
type Deliverer interface {
	Deliver(ctx context.Context, user models.User) error
}

// Answerer grades and reveals answers
type Answerer interface {
	Submit(ctx context.Context, userID int64, subject, questionID string, answerIndex int) (quiz.Feedback, error)
	Reveal(ctx context.Context, subject, questionID string) (string, error)
	Progress(ctx context.Context, userID int64) (models.AggregateStats, error)
}

// Deps are the collaborators of the bot
type Deps struct {
	Config    *config.Config
	Messenger Messenger
	Users     UserStore
	Pending   PendingLookup
	Delivery  Deliverer
	Answers   Answerer
	Log       *logger.Logger
}

// Bot routes chat commands, menu buttons and inline callbacks
type Bot struct {
	cfg      *config.Config
	msg      Messenger
	users    UserStore
	pending  PendingLookup
	delivery Deliverer
	answers  Answerer
	log      *logger.Logger
}

// New creates a new bot instance
func New(deps Deps) *Bot {
	return &Bot{
		cfg:      deps.Config,
		msg:      deps.Messenger,
		users:    deps.Users,
		pending:  deps.Pending,
		delivery: deps.Delivery,
		answers:  deps.Answers,
		log:      deps.Log,
	}
}

// Run polls updates and handles each one in its own goroutine until ctx is
// cancelled. In-flight handlers are awaited before Run returns.
func (b *Bot) Run(ctx context.Context, source UpdateSource) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := source.GetUpdatesChan(updateConfig)

	b.log.Info("bot started, waiting for updates")

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			source.StopReceivingUpdates()
			b.log.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.HandleUpdate(ctx, update)
			}()
		}
	}
}

// HandleUpdate dispatches a single update. A panic in a handler is logged
// and does not stop the bot.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic while handling update", "update_id", update.UpdateID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
		} else {
			b.handleText(ctx, update.Message)
		}
	}
}
