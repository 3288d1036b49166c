package quiz

import (
	"context"
	"errors"

	"github.com/example/questionbot/internal/telegram"
	"github.com/example/questionbot/pkg/models"
)

type fakeBank map[string][]models.Question

func (b fakeBank) Load(subject string) []models.Question {
	return b[subject]
}

func (b fakeBank) Find(subject, id string) (models.Question, bool) {
	for _, q := range b[subject] {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

type fakeStats struct {
	rows []models.AnswerStat
	err  error
}

func (f *fakeStats) Add(_ context.Context, userID int64, questionID, subject string, correct *bool) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, models.AnswerStat{UserID: userID, QuestionID: questionID, Subject: subject, Correct: correct})
	return nil
}

func (f *fakeStats) GetByUser(_ context.Context, userID int64) ([]models.AnswerStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.AnswerStat
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStats) GetAggregate(_ context.Context, userID int64) (models.AggregateStats, error) {
	var agg models.AggregateStats
	for _, r := range f.rows {
		if r.UserID != userID {
			continue
		}
		agg.Total++
		if r.Correct != nil {
			agg.Graded++
			if *r.Correct {
				agg.Correct++
			}
		}
	}
	return agg, nil
}

type fakeSent struct {
	rows []models.SentQuestion
}

func (f *fakeSent) Add(_ context.Context, userID int64, questionID, subject string) error {
	f.rows = append(f.rows, models.SentQuestion{ID: int64(len(f.rows) + 1), UserID: userID, QuestionID: questionID, Subject: subject})
	return nil
}

func (f *fakeSent) MarkAnswered(_ context.Context, userID int64, questionID string) (bool, error) {
	stamped := false
	for i := range f.rows {
		r := &f.rows[i]
		if r.UserID == userID && r.QuestionID == questionID && r.AnsweredAt == nil {
			now := fixedNow
			r.AnsweredAt = &now
			stamped = true
		}
	}
	return stamped, nil
}

type sentMessage struct {
	chatID  int64
	content telegram.Content
}

type fakeSender struct {
	messages []sentMessage
	failFor  map[int64]error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, content telegram.Content) (int, error) {
	if err := f.failFor[chatID]; err != nil {
		return 0, err
	}
	f.messages = append(f.messages, sentMessage{chatID: chatID, content: content})
	return len(f.messages), nil
}

var errBoom = errors.New("boom")
