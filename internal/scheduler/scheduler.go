package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/questionbot/internal/config"
	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/internal/quiz"
	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
	"github.com/go-co-op/gocron"
)

// Users is the part of the user store the scheduler needs
type Users interface {
	GetUsersByTime(ctx context.Context, notificationTime string) ([]models.User, error)
	GetActiveUsers(ctx context.Context) ([]models.User, error)
	UpdateActive(ctx context.Context, id int64, active bool) error
}

// Pending is the part of the delivery store the reminder sweep needs
type Pending interface {
	GetUnanswered(ctx context.Context, userID int64, olderThanHours int) ([]models.SentQuestion, error)
	MarkReminded(ctx context.Context, id int64) (bool, error)
}

// Deliverer sends one question to one user
type Deliverer interface {
	Deliver(ctx context.Context, user models.User) error
}

// Options configure the recurring jobs
type Options struct {
	Location      *time.Location
	Slots         []string // delivery times "HH:MM"
	ReminderCron  string
	ReminderHours int
	SendDelay     time.Duration
}

// OptionsFromConfig derives scheduler options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Location:      cfg.Location,
		Slots:         cfg.AvailableTimes,
		ReminderCron:  cfg.ReminderCron,
		ReminderHours: cfg.ReminderHours,
		SendDelay:     cfg.SendDelay,
	}
}

// Scheduler runs the daily fan-out per delivery slot and the reminder sweep
type Scheduler struct {
	scheduler *gocron.Scheduler
	opts      Options
	users     Users
	pending   Pending
	delivery  Deliverer
	sender    quiz.Sender
	log       *logger.Logger
	stopOnce  sync.Once
}

// New creates a new scheduler instance
func New(opts Options, users Users, pending Pending, delivery Deliverer, sender quiz.Sender, log *logger.Logger) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	// A batch that runs long never overlaps with its own next tick
	s.SingletonModeAll()

	return &Scheduler{
		scheduler: s,
		opts:      opts,
		users:     users,
		pending:   pending,
		delivery:  delivery,
		sender:    sender,
		log:       log,
	}
}

// Start registers all jobs and runs them in the background until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, slot := range s.opts.Slots {
		expr, err := SlotCron(slot)
		if err != nil {
			return err
		}
		slot := slot
		if _, err := s.scheduler.Cron(expr).Tag("slot " + slot).Do(func() {
			s.guard("fan-out", func() { s.RunSlot(ctx, slot) })
		}); err != nil {
			return fmt.Errorf("failed to schedule slot %s: %w", slot, err)
		}
	}

	if _, err := s.scheduler.Cron(s.opts.ReminderCron).Tag("reminders").Do(func() {
		s.guard("reminder sweep", func() { s.SweepReminders(ctx) })
	}); err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}

	// Start the scheduler in a non-blocking manner
	s.scheduler.StartAsync()
	s.log.Info("scheduler started", "slots", s.opts.Slots, "reminder_cron", s.opts.ReminderCron, "timezone", s.scheduler.Location().String())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop terminates all scheduled tasks. Jobs already running see their
// context cancelled and stop between sends.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.scheduler.IsRunning() {
			s.scheduler.Stop()
			s.log.Info("scheduler stopped")
		}
	})
}

// RunSlot delivers a question to every active user subscribed to slot.
// Users are processed one by one with a fixed pause; a failure for one user
// is logged and does not affect the others.
func (s *Scheduler) RunSlot(ctx context.Context, slot string) {
	users, err := s.users.GetUsersByTime(ctx, slot)
	if err != nil {
		s.log.Error("failed to get users for slot", "slot", slot, "error", err)
		return
	}
	s.log.Info("sending scheduled questions", "slot", slot, "users", len(users))

	delivered := 0
	for i, user := range users {
		if i > 0 && !s.pause(ctx) {
			s.log.Warn("fan-out interrupted", "slot", slot, "delivered", delivered, "remaining", len(users)-i)
			return
		}
		if err := s.delivery.Deliver(ctx, user); err != nil {
			s.handleSendError(ctx, user, "failed to deliver question", err)
			continue
		}
		delivered++
	}
	s.log.Info("scheduled questions sent", "slot", slot, "delivered", delivered, "failed", len(users)-delivered)
}

// SweepReminders sends one reminder for each delivery that is still
// unanswered after the configured number of hours and flags that record.
// Overdue repeats of one question share a single reminder. Transport
// failures leave the record unflagged, so the next sweep retries it.
func (s *Scheduler) SweepReminders(ctx context.Context) {
	users, err := s.users.GetActiveUsers(ctx)
	if err != nil {
		s.log.Error("failed to get active users", "error", err)
		return
	}

	reminded := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return
		}
		pending, err := s.pending.GetUnanswered(ctx, user.ID, s.opts.ReminderHours)
		if err != nil {
			s.log.Error("failed to get unanswered questions", "user_id", user.ID, "error", err)
			continue
		}

		notified := make(map[string]bool, len(pending))
		for _, sq := range pending {
			if !notified[sq.QuestionID] {
				if _, err := s.sender.SendMessage(ctx, user.ChatID, telegram.Content{Text: quiz.TextReminder}); err != nil {
					if s.handleSendError(ctx, user, "failed to send reminder", err) {
						break
					}
					continue
				}
				notified[sq.QuestionID] = true
				reminded++
			}
			if _, err := s.pending.MarkReminded(ctx, sq.ID); err != nil {
				s.log.Error("failed to mark reminder sent", "user_id", user.ID, "sent_id", sq.ID, "question_id", sq.QuestionID, "error", err)
			}
		}
	}
	if reminded > 0 {
		s.log.Info("reminders sent", "count", reminded)
	}
}

// handleSendError logs a per-user failure and deactivates users that blocked
// the bot. It reports whether the user was deactivated.
func (s *Scheduler) handleSendError(ctx context.Context, user models.User, msg string, err error) bool {
	if !telegram.IsRecipientUnreachable(err) {
		s.log.Error(msg, "user_id", user.ID, "chat_id", user.ChatID, "error", err)
		return false
	}
	s.log.Warn("recipient unreachable, deactivating user", "user_id", user.ID, "error", err)
	if err := s.users.UpdateActive(ctx, user.ID, false); err != nil {
		s.log.Error("failed to deactivate user", "user_id", user.ID, "error", err)
	}
	return true
}

// pause waits SendDelay; it returns false when ctx was cancelled meanwhile
func (s *Scheduler) pause(ctx context.Context) bool {
	if s.opts.SendDelay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(s.opts.SendDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// guard keeps a panicking job from taking the process down
func (s *Scheduler) guard(job string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked", "job", job, "panic", r)
		}
	}()
	fn()
}

// SlotCron converts "HH:MM" into a daily cron expression
func SlotCron(slot string) (string, error) {
	hour, minute, err := config.ParseClock(slot)
	if err != nil {
		return "", fmt.Errorf("invalid delivery slot: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
