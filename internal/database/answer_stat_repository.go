package database

import (
	"context"
	"fmt"

	"github.com/example/questionbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// AnswerStatRepository handles the append-only answer log
type AnswerStatRepository struct {
	db    *sqlx.DB
	clock Clock
}

// NewAnswerStatRepository creates a new repository instance
func NewAnswerStatRepository(db *sqlx.DB, clock Clock) *AnswerStatRepository {
	return &AnswerStatRepository{db: db, clock: clock}
}

// Add appends one answer attempt. A nil correct marks an ungraded answer.
func (r *AnswerStatRepository) Add(ctx context.Context, userID int64, questionID, subject string, correct *bool) error {
	query := r.db.Rebind(`
		INSERT INTO user_stats (user_id, question_id, subject, answered_correctly, answered_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, userID, questionID, subject, correct, r.clock.now()); err != nil {
		return fmt.Errorf("failed to add answer stat: %w", err)
	}
	return nil
}

// GetByUser returns the whole answer history of a user across all subjects
func (r *AnswerStatRepository) GetByUser(ctx context.Context, userID int64) ([]models.AnswerStat, error) {
	query := r.db.Rebind(`
		SELECT id, user_id, question_id, subject, answered_correctly, answered_at
		FROM user_stats
		WHERE user_id = ?
		ORDER BY answered_at, id
	`)
	var stats []models.AnswerStat
	if err := r.db.SelectContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get answer stats: %w", err)
	}
	return stats, nil
}

// GetAggregate counts all, graded and correct answers of a user
func (r *AnswerStatRepository) GetAggregate(ctx context.Context, userID int64) (models.AggregateStats, error) {
	query := r.db.Rebind(`
		SELECT
			COUNT(*) AS total,
			COUNT(answered_correctly) AS graded,
			COALESCE(SUM(CASE WHEN answered_correctly THEN 1 ELSE 0 END), 0) AS correct
		FROM user_stats
		WHERE user_id = ?
	`)
	var stats models.AggregateStats
	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return models.AggregateStats{}, fmt.Errorf("failed to get aggregate stats: %w", err)
	}
	return stats, nil
}
