package models

import "time"

// User represents a Telegram user subscribed to daily questions
type User struct {
	ID               int64     `json:"user_id" db:"user_id"` // Telegram User ID
	ChatID           int64     `json:"chat_id" db:"chat_id"`
	Username         string    `json:"username" db:"username"`
	Subject          string    `json:"subject" db:"subject"`                     // Subject key, e.g. "math"
	NotificationTime string    `json:"notification_time" db:"notification_time"` // Local delivery time "HH:MM"
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}
