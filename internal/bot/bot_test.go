package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/questionbot/internal/config"
	"github.com/example/questionbot/internal/database"
	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/internal/quiz"
	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	chatID  int64
	content telegram.Content
}

type edit struct {
	messageID int
	text      string
	controls  [][]telegram.Control
}

type fakeMessenger struct {
	mu       sync.Mutex
	messages []sent
	edits    []edit
	acks     []string
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, content telegram.Content) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{chatID: chatID, content: content})
	return len(f.messages), nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, _ int64, messageID int, content telegram.Content) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{messageID: messageID, text: content.Text, controls: content.Controls})
	return nil
}

func (f *fakeMessenger) EditControls(_ context.Context, _ int64, messageID int, controls [][]telegram.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{messageID: messageID, controls: controls})
	return nil
}

func (f *fakeMessenger) AnswerInteraction(_ context.Context, _ string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, text)
	return nil
}

func (f *fakeMessenger) last() sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[len(f.messages)-1]
}

func (f *fakeMessenger) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages, f.edits, f.acks = nil, nil, nil
}

type bank map[string][]models.Question

func (b bank) Load(subject string) []models.Question { return b[subject] }

func (b bank) Find(subject, id string) (models.Question, bool) {
	for _, q := range b[subject] {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

type env struct {
	bot   *Bot
	msg   *fakeMessenger
	users *database.UserRepository
	sent  *database.SentQuestionRepository
	stats *database.AnswerStatRepository
}

func newEnv(t *testing.T, questions bank) *env {
	t.Helper()
	db, err := database.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cfg := &config.Config{
		Subjects:       []config.Subject{{Key: "math", Name: "Математика"}, {Key: "physics", Name: "Физика"}},
		AvailableTimes: []string{"09:00", "18:00"},
		DefaultSubject: "math",
		DefaultTime:    "09:00",
	}
	log := logger.NewNop()
	msg := &fakeMessenger{}
	users := database.NewUserRepository(db, clock)
	sentRepo := database.NewSentQuestionRepository(db, clock)
	stats := database.NewAnswerStatRepository(db, clock)

	b := New(Deps{
		Config:    cfg,
		Messenger: msg,
		Users:     users,
		Pending:   sentRepo,
		Delivery:  quiz.NewDelivery(quiz.NewSelector(questions, stats), msg, sentRepo, log),
		Answers:   quiz.NewAnswers(questions, stats, sentRepo, log),
		Log:       log,
	})
	return &env{bot: b, msg: msg, users: users, sent: sentRepo, stats: stats}
}

func command(userID int64, text string) tgbotapi.Update {
	cmdLen := len(text)
	for i, r := range text {
		if r == ' ' {
			cmdLen = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: userID, UserName: "student"},
		Chat:     &tgbotapi.Chat{ID: userID * 10},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}},
	}}
}

func text(userID int64, body string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: body,
		From: &tgbotapi.User{ID: userID, FirstName: "Anna"},
		Chat: &tgbotapi.Chat{ID: userID * 10},
	}}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 7,
			Chat:      &tgbotapi.Chat{ID: userID * 10},
		},
	}}
}

var mathBank = bank{"math": {
	{ID: "m1", Subject: "math", Kind: models.KindChoice, Prompt: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1},
}}

func TestStartRegistersWithDefaults(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)

	e.bot.HandleUpdate(ctx, command(1, "/start"))

	user, err := e.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "math", user.Subject)
	assert.Equal(t, "09:00", user.NotificationTime)
	assert.Equal(t, int64(10), user.ChatID)
	assert.True(t, user.IsActive)

	reply := e.msg.last()
	assert.Contains(t, reply.content.Text, "Математика")
	assert.NotNil(t, reply.content.Keyboard)

	// /start again reactivates a paused user
	require.NoError(t, e.users.UpdateActive(ctx, 1, false))
	e.bot.HandleUpdate(ctx, command(1, "/start"))
	user, err = e.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
}

func TestCommandsRequireRegistration(t *testing.T) {
	e := newEnv(t, mathBank)
	for _, cmd := range []string{"/today", "/progress", "/stop", "/resume"} {
		e.msg.reset()
		e.bot.HandleUpdate(context.Background(), command(1, cmd))
		assert.Equal(t, textRegisterFirst, e.msg.last().content.Text, cmd)
	}
}

func TestSetSubjectAndTime(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(ctx, command(1, "/start"))

	e.bot.HandleUpdate(ctx, callback(1, "set_subject_physics"))
	e.bot.HandleUpdate(ctx, callback(1, "set_time_18:00"))

	user, err := e.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "physics", user.Subject)
	assert.Equal(t, "18:00", user.NotificationTime)
	assert.Equal(t, []string{"Предмет выбран: Физика", "Время уведомлений установлено: 18:00"}, e.msg.acks)
}

func TestUnknownSubjectAndTimeRejected(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(ctx, command(1, "/start"))

	e.bot.HandleUpdate(ctx, callback(1, "set_subject_chemistry"))
	e.bot.HandleUpdate(ctx, callback(1, "set_time_07:00"))

	user, err := e.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "math", user.Subject)
	assert.Equal(t, "09:00", user.NotificationTime)
	assert.Equal(t, []string{textBadSubject, textBadTime}, e.msg.acks)
}

func TestStopAndResume(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(ctx, command(1, "/start"))

	e.bot.HandleUpdate(ctx, text(1, buttonStop))
	user, err := e.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	e.bot.HandleUpdate(ctx, command(1, "/resume"))
	user, err = e.users.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.IsActive)
	assert.Contains(t, e.msg.last().content.Text, "09:00")
}

func TestTodayAnswerAndProgress(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(ctx, command(1, "/start"))
	e.msg.reset()

	e.bot.HandleUpdate(ctx, command(1, "/today"))
	require.Len(t, e.msg.messages, 2)
	assert.Equal(t, textLoading, e.msg.messages[0].content.Text)
	assert.Contains(t, e.msg.messages[1].content.Text, "2+2?")

	e.bot.HandleUpdate(ctx, callback(1, quiz.AnswerData("math", "m1", 1)))
	assert.Equal(t, []string{quiz.TextCorrect}, e.msg.acks)
	require.Len(t, e.msg.edits, 1)
	assert.Equal(t, quiz.NextControls(), e.msg.edits[0].controls)

	latest, err := e.sent.GetLatest(ctx, 1, "m1")
	require.NoError(t, err)
	assert.True(t, latest.Answered())

	e.bot.HandleUpdate(ctx, command(1, "/progress"))
	progress := e.msg.last().content.Text
	assert.Contains(t, progress, "Правильных ответов: 1")
	assert.Contains(t, progress, "100%")
}

func TestAnswerForUnknownQuestion(t *testing.T) {
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(context.Background(), callback(1, quiz.AnswerData("math", "gone", 0)))
	assert.Equal(t, []string{textNotFound}, e.msg.acks)
	assert.Empty(t, e.msg.edits)
}

func TestCallbacksForUnconfiguredSubjectRejected(t *testing.T) {
	ctx := context.Background()
	questions := bank{
		"math":    mathBank["math"],
		"history": {{ID: "h1", Subject: "history", Kind: models.KindChoice, Prompt: "1812?", Options: []string{"a", "b"}, CorrectIndex: 0}},
	}
	e := newEnv(t, questions)
	e.bot.HandleUpdate(ctx, command(1, "/start"))
	e.msg.reset()

	for _, data := range []string{
		quiz.AnswerData("history", "h1", 0),
		"ans:../outside/evil:x:0",
		quiz.RevealData("history", "h1"),
	} {
		e.bot.HandleUpdate(ctx, callback(1, data))
	}

	assert.Equal(t, []string{textBadSubject, textBadSubject, textBadSubject}, e.msg.acks)
	assert.Empty(t, e.msg.messages)
	assert.Empty(t, e.msg.edits)

	history, err := e.stats.GetByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history, "nothing is stored for unknown subjects")
}

func TestRevealSendsAnswer(t *testing.T) {
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(context.Background(), callback(1, quiz.RevealData("math", "m1")))

	require.Len(t, e.msg.messages, 1)
	assert.True(t, e.msg.messages[0].content.HTML)
	assert.Contains(t, e.msg.messages[0].content.Text, "Правильный ответ: 4")
	require.Len(t, e.msg.edits, 1)
}

func TestFreeTextAnswersOpenQuestion(t *testing.T) {
	ctx := context.Background()
	questions := bank{"math": {
		{ID: "o1", Subject: "math", Kind: models.KindOpen, Prompt: "Why?", Answer: "Because."},
	}}
	e := newEnv(t, questions)
	e.bot.HandleUpdate(ctx, command(1, "/start"))
	e.bot.HandleUpdate(ctx, command(1, "/today"))
	e.msg.reset()

	e.bot.HandleUpdate(ctx, text(1, "my thoughts"))

	reply := e.msg.last().content
	assert.Contains(t, reply.Text, quiz.TextReceived)
	assert.Contains(t, reply.Text, "Because.")

	agg, err := e.stats.GetAggregate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AggregateStats{Total: 1}, agg)

	// Nothing pending any more, further text is ignored
	e.msg.reset()
	e.bot.HandleUpdate(ctx, text(1, "more thoughts"))
	assert.Empty(t, e.msg.messages)
}

func TestFreeTextForRemovedQuestionIsIgnored(t *testing.T) {
	ctx := context.Background()
	questions := bank{"math": {
		{ID: "o1", Subject: "math", Kind: models.KindOpen, Prompt: "Why?", Answer: "Because."},
	}}
	e := newEnv(t, questions)
	e.bot.HandleUpdate(ctx, command(1, "/start"))
	e.bot.HandleUpdate(ctx, command(1, "/today"))
	e.msg.reset()

	questions["math"] = nil
	e.bot.HandleUpdate(ctx, text(1, "my thoughts"))

	assert.Empty(t, e.msg.messages)
	history, err := e.stats.GetByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestFreeTextForChoiceQuestionAsksForButtons(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)
	e.bot.HandleUpdate(ctx, command(1, "/start"))
	e.bot.HandleUpdate(ctx, command(1, "/today"))

	e.bot.HandleUpdate(ctx, text(1, "4"))
	assert.Equal(t, textUseButtons, e.msg.last().content.Text)
}

func TestSettingsMenu(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, mathBank)

	e.bot.HandleUpdate(ctx, text(1, buttonSettings))
	assert.Equal(t, settingsControls(), e.msg.last().content.Controls)

	e.bot.HandleUpdate(ctx, callback(1, callbackMenuSubject))
	assert.Equal(t, subjectControls(e.bot.cfg), e.msg.last().content.Controls)

	e.bot.HandleUpdate(ctx, callback(1, callbackMenuBack))
	assert.Equal(t, textPickAction, e.msg.last().content.Text)
}

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
}

func (f *fakeSource) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.ch }
func (f *fakeSource) StopReceivingUpdates()                                     { close(f.stopped) }

func TestRunHandlesUpdatesUntilCancelled(t *testing.T) {
	e := newEnv(t, mathBank)
	src := &fakeSource{ch: make(chan tgbotapi.Update, 1), stopped: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.bot.Run(ctx, src) }()

	src.ch <- command(1, "/help")
	assert.Eventually(t, func() bool {
		e.msg.mu.Lock()
		defer e.msg.mu.Unlock()
		return len(e.msg.messages) == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	<-src.stopped
	assert.Equal(t, textHelp, e.msg.last().content.Text)
}
