package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/questionbot/pkg/models"
	"github.com/jmoiron/sqlx"
)

// ErrUserNotFound is returned when no user matches the lookup
var ErrUserNotFound = errors.New("user not found")

const userColumns = "user_id, chat_id, username, subject, notification_time, is_active, created_at"

// UserRepository handles database operations for users
type UserRepository struct {
	db    *sqlx.DB
	clock Clock
}

// NewUserRepository creates a new repository instance
func NewUserRepository(db *sqlx.DB, clock Clock) *UserRepository {
	return &UserRepository{db: db, clock: clock}
}

// GetByID returns a user by Telegram user ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE user_id = ?")
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// Create inserts a new active user. Subject and time must already be validated.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.IsActive = true
	user.CreatedAt = r.clock.now()

	query := r.db.Rebind(`
		INSERT INTO users (user_id, chat_id, username, subject, notification_time, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.ChatID,
		user.Username,
		user.Subject,
		user.NotificationTime,
		user.IsActive,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateUsername refreshes the display name and chat of a returning user
func (r *UserRepository) UpdateUsername(ctx context.Context, id, chatID int64, username string) error {
	return r.update(ctx, "username = ?, chat_id = ?", id, username, chatID)
}

// UpdateSubject changes the subject preference
func (r *UserRepository) UpdateSubject(ctx context.Context, id int64, subject string) error {
	return r.update(ctx, "subject = ?", id, subject)
}

// UpdateTime changes the preferred delivery time
func (r *UserRepository) UpdateTime(ctx context.Context, id int64, notificationTime string) error {
	return r.update(ctx, "notification_time = ?", id, notificationTime)
}

// UpdateActive pauses or resumes deliveries for a user
func (r *UserRepository) UpdateActive(ctx context.Context, id int64, active bool) error {
	return r.update(ctx, "is_active = ?", id, active)
}

// GetActiveUsers returns every user with deliveries enabled
func (r *UserRepository) GetActiveUsers(ctx context.Context) ([]models.User, error) {
	return r.getUsersWithCondition(ctx, "is_active = ?", true)
}

// GetUsersByTime returns active users subscribed to the given delivery slot
func (r *UserRepository) GetUsersByTime(ctx context.Context, notificationTime string) ([]models.User, error) {
	return r.getUsersWithCondition(ctx, "is_active = ? AND notification_time = ?", true, notificationTime)
}

func (r *UserRepository) update(ctx context.Context, set string, id int64, args ...interface{}) error {
	query := r.db.Rebind("UPDATE users SET " + set + " WHERE user_id = ?")
	result, err := r.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// getUsersWithCondition is a helper function to get users with a specific condition
func (r *UserRepository) getUsersWithCondition(ctx context.Context, condition string, args ...interface{}) ([]models.User, error) {
	query := r.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + condition + " ORDER BY created_at, user_id")
	var users []models.User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get users with condition: %w", err)
	}
	return users, nil
}
