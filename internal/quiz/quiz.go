// Package quiz selects, delivers and grades daily questions.
package quiz

import (
	"context"
	"errors"

	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
)

var (
	// ErrQuestionNotFound is returned when a question id is not in its subject bank
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidOption is returned for an answer index outside the option list
	ErrInvalidOption = errors.New("invalid answer option")
)

// QuestionSource is the read interface of the question bank cache
type QuestionSource interface {
	Load(subject string) []models.Question
	Find(subject, id string) (models.Question, bool)
}

// AnswerLog stores answer attempts
type AnswerLog interface {
	Add(ctx context.Context, userID int64, questionID, subject string, correct *bool) error
	GetByUser(ctx context.Context, userID int64) ([]models.AnswerStat, error)
	GetAggregate(ctx context.Context, userID int64) (models.AggregateStats, error)
}

// DeliveryLog stores delivery records
type DeliveryLog interface {
	Add(ctx context.Context, userID int64, questionID, subject string) error
	MarkAnswered(ctx context.Context, userID int64, questionID string) (bool, error)
}

// Sender sends chat messages
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, content telegram.Content) (int, error)
}
