package quiz

import (
	"context"
	"fmt"

	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/pkg/models"
)

// Feedback is the outcome of a submitted answer
type Feedback struct {
	Text string
	// Correct is nil for ungraded (open) questions
	Correct *bool
	// FirstAnswer is true when this submission stamped the delivery as answered
	FirstAnswer bool
}

// Answers grades submissions and reveals answers
type Answers struct {
	bank  QuestionSource
	stats AnswerLog
	sent  DeliveryLog
	log   *logger.Logger
}

// NewAnswers creates an answer processor
func NewAnswers(bank QuestionSource, stats AnswerLog, sent DeliveryLog, log *logger.Logger) *Answers {
	return &Answers{bank: bank, stats: stats, sent: sent, log: log}
}

// Submit grades an answer against the current bank definition of the question.
// Choice questions are graded by index; open questions are recorded as
// ungraded and answerIndex is ignored. Every submission is logged, but only
// the first one stamps the delivery as answered.
func (a *Answers) Submit(ctx context.Context, userID int64, subject, questionID string, answerIndex int) (Feedback, error) {
	q, ok := a.bank.Find(subject, questionID)
	if !ok {
		return Feedback{}, fmt.Errorf("%w: %s/%s", ErrQuestionNotFound, subject, questionID)
	}

	var feedback Feedback
	if q.IsChoice() {
		if answerIndex < 0 || answerIndex >= len(q.Options) {
			return Feedback{}, fmt.Errorf("%w: %d", ErrInvalidOption, answerIndex)
		}
		correct := answerIndex == q.CorrectIndex
		feedback.Correct = &correct
		if correct {
			feedback.Text = TextCorrect
		} else {
			feedback.Text = incorrectText(q)
		}
	} else {
		feedback.Text = TextReceived
	}

	if err := a.stats.Add(ctx, userID, q.ID, subject, feedback.Correct); err != nil {
		return Feedback{}, err
	}

	stamped, err := a.sent.MarkAnswered(ctx, userID, q.ID)
	if err != nil {
		return Feedback{}, err
	}
	feedback.FirstAnswer = stamped

	a.log.Debug("answer recorded", "user_id", userID, "subject", subject, "question_id", q.ID, "first", stamped)
	return feedback, nil
}

// Reveal renders the answer of a question without recording anything
func (a *Answers) Reveal(ctx context.Context, subject, questionID string) (string, error) {
	q, ok := a.bank.Find(subject, questionID)
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrQuestionNotFound, subject, questionID)
	}
	return RenderReveal(q), nil
}

// Progress returns the aggregate answer counts of a user
func (a *Answers) Progress(ctx context.Context, userID int64) (models.AggregateStats, error) {
	return a.stats.GetAggregate(ctx, userID)
}
