package quiz

import (
	"context"
	"fmt"

	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
)

// Delivery sends a selected question to a user and records the send
type Delivery struct {
	selector *Selector
	sender   Sender
	sent     DeliveryLog
	log      *logger.Logger
}

// NewDelivery creates a delivery service
func NewDelivery(selector *Selector, sender Sender, sent DeliveryLog, log *logger.Logger) *Delivery {
	return &Delivery{selector: selector, sender: sender, sent: sent, log: log}
}

// Deliver sends one question to the user. With an empty bank the user gets a
// short notice and no record is created. When sending fails no record is
// created and the classified transport error is returned.
func (d *Delivery) Deliver(ctx context.Context, user models.User) error {
	q, err := d.selector.Select(ctx, user.ID, user.Subject)
	if err != nil {
		return err
	}

	if q == nil {
		d.log.Warn("no questions available", "user_id", user.ID, "subject", user.Subject)
		if _, err := d.sender.SendMessage(ctx, user.ChatID, telegram.Content{Text: TextUnavailable}); err != nil {
			return fmt.Errorf("failed to send unavailable notice: %w", err)
		}
		return nil
	}

	if _, err := d.sender.SendMessage(ctx, user.ChatID, RenderQuestion(*q)); err != nil {
		return fmt.Errorf("failed to send question %s: %w", q.ID, err)
	}

	if err := d.sent.Add(ctx, user.ID, q.ID, user.Subject); err != nil {
		return fmt.Errorf("question %s sent but not recorded: %w", q.ID, err)
	}

	d.log.Debug("question delivered", "user_id", user.ID, "subject", user.Subject, "question_id", q.ID)
	return nil
}
