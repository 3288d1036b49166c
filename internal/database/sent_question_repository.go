package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/questionbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ErrSentQuestionNotFound is returned when no delivery record matches
var ErrSentQuestionNotFound = errors.New("sent question not found")

const sentQuestionColumns = "id, user_id, question_id, subject, sent_at, answered_at, reminder_sent"

// SentQuestionRepository handles delivery records
type SentQuestionRepository struct {
	db    *sqlx.DB
	clock Clock
}

// NewSentQuestionRepository creates a new repository instance
func NewSentQuestionRepository(db *sqlx.DB, clock Clock) *SentQuestionRepository {
	return &SentQuestionRepository{db: db, clock: clock}
}

// Add records that a question was sent to a user just now
func (r *SentQuestionRepository) Add(ctx context.Context, userID int64, questionID, subject string) error {
	query := r.db.Rebind(`
		INSERT INTO sent_questions (user_id, question_id, subject, sent_at, answered_at, reminder_sent)
		VALUES (?, ?, ?, ?, NULL, FALSE)
	`)
	if _, err := r.db.ExecContext(ctx, query, userID, questionID, subject, r.clock.now()); err != nil {
		return fmt.Errorf("failed to add sent question: %w", err)
	}
	return nil
}

// MarkAnswered stamps answered_at on unanswered deliveries of the question.
// It reports whether anything was stamped; an earlier answer is never overwritten.
func (r *SentQuestionRepository) MarkAnswered(ctx context.Context, userID int64, questionID string) (bool, error) {
	query := r.db.Rebind(`
		UPDATE sent_questions
		SET answered_at = ?
		WHERE user_id = ? AND question_id = ? AND answered_at IS NULL
	`)
	return r.execChanged(ctx, "mark answered", query, r.clock.now(), userID, questionID)
}

// MarkReminded flags a single delivery record as reminded.
// It reports whether the record changed, so a second call is a no-op.
func (r *SentQuestionRepository) MarkReminded(ctx context.Context, id int64) (bool, error) {
	query := r.db.Rebind(`
		UPDATE sent_questions
		SET reminder_sent = TRUE
		WHERE id = ? AND reminder_sent = FALSE
	`)
	return r.execChanged(ctx, "mark reminded", query, id)
}

// GetUnanswered returns deliveries that are unanswered, not yet reminded and
// were sent more than olderThanHours ago.
func (r *SentQuestionRepository) GetUnanswered(ctx context.Context, userID int64, olderThanHours int) ([]models.SentQuestion, error) {
	cutoff := r.clock.now().Add(-time.Duration(olderThanHours) * time.Hour)
	query := r.db.Rebind(`
		SELECT ` + sentQuestionColumns + `
		FROM sent_questions
		WHERE user_id = ?
			AND answered_at IS NULL
			AND reminder_sent = FALSE
			AND sent_at < ?
		ORDER BY sent_at, id
	`)
	var sent []models.SentQuestion
	if err := r.db.SelectContext(ctx, &sent, query, userID, cutoff); err != nil {
		return nil, fmt.Errorf("failed to get unanswered questions: %w", err)
	}
	return sent, nil
}

// GetLatest returns the most recent delivery of a question to a user
func (r *SentQuestionRepository) GetLatest(ctx context.Context, userID int64, questionID string) (*models.SentQuestion, error) {
	query := r.db.Rebind(`
		SELECT ` + sentQuestionColumns + `
		FROM sent_questions
		WHERE user_id = ? AND question_id = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`)
	var sent models.SentQuestion
	err := r.db.GetContext(ctx, &sent, query, userID, questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSentQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sent question: %w", err)
	}
	return &sent, nil
}

// GetLatestUnanswered returns the most recent unanswered delivery of a user
func (r *SentQuestionRepository) GetLatestUnanswered(ctx context.Context, userID int64) (*models.SentQuestion, error) {
	query := r.db.Rebind(`
		SELECT ` + sentQuestionColumns + `
		FROM sent_questions
		WHERE user_id = ? AND answered_at IS NULL
		ORDER BY sent_at DESC, id DESC
		LIMIT 1
	`)
	var sent models.SentQuestion
	err := r.db.GetContext(ctx, &sent, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSentQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unanswered question: %w", err)
	}
	return &sent, nil
}

// CountByUser returns how many deliveries a user has received
func (r *SentQuestionRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM sent_questions WHERE user_id = ?")
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("failed to count sent questions: %w", err)
	}
	return count, nil
}

func (r *SentQuestionRepository) execChanged(ctx context.Context, op, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
