package quiz

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/example/questionbot/pkg/models"
)

// Selector picks the next question for a user, preferring questions the
// user has never answered in that subject.
type Selector struct {
	bank  QuestionSource
	stats AnswerLog
	intn  func(n int) int
}

// NewSelector creates a selector using the global random source
func NewSelector(bank QuestionSource, stats AnswerLog) *Selector {
	return &Selector{bank: bank, stats: stats, intn: rand.Intn}
}

// WithRand replaces the random index function (tests)
func (s *Selector) WithRand(intn func(n int) int) *Selector {
	s.intn = intn
	return s
}

// Select returns a question of the subject, or nil when the bank is empty.
// History is the user's whole answer log for the subject, not a time window.
// Once every question has been answered the full bank is used again.
func (s *Selector) Select(ctx context.Context, userID int64, subject string) (*models.Question, error) {
	questions := s.bank.Load(subject)
	if len(questions) == 0 {
		return nil, nil
	}

	history, err := s.stats.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load answer history: %w", err)
	}
	answered := make(map[string]struct{}, len(history))
	for _, stat := range history {
		if stat.Subject == subject {
			answered[stat.QuestionID] = struct{}{}
		}
	}

	unseen := make([]models.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := answered[q.ID]; !ok {
			unseen = append(unseen, q)
		}
	}

	pool := unseen
	if len(pool) == 0 {
		pool = questions
	}
	q := pool[s.intn(len(pool))]
	return &q, nil
}
