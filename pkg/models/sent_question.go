package models

import "time"

// SentQuestion records one delivery of a question to a user.
// AnsweredAt is stamped once (first answer wins) and ReminderSent only ever
// goes from false to true.
type SentQuestion struct {
	ID           int64      `json:"id" db:"id"`
	UserID       int64      `json:"user_id" db:"user_id"`
	QuestionID   string     `json:"question_id" db:"question_id"`
	Subject      string     `json:"subject" db:"subject"`
	SentAt       time.Time  `json:"sent_at" db:"sent_at"`
	AnsweredAt   *time.Time `json:"answered_at" db:"answered_at"`
	ReminderSent bool       `json:"reminder_sent" db:"reminder_sent"`
}

// Answered reports whether the delivery has been answered
func (s SentQuestion) Answered() bool {
	return s.AnsweredAt != nil
}
