package models

import "time"

// AnswerStat is one answer attempt. Correct is nil for ungraded (open) answers.
type AnswerStat struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	QuestionID string    `json:"question_id" db:"question_id"`
	Subject    string    `json:"subject" db:"subject"`
	Correct    *bool     `json:"answered_correctly" db:"answered_correctly"`
	AnsweredAt time.Time `json:"answered_at" db:"answered_at"`
}

// Graded reports whether the attempt was evaluated
func (a AnswerStat) Graded() bool {
	return a.Correct != nil
}

// AggregateStats summarises a user's answer log
type AggregateStats struct {
	Total   int `json:"total" db:"total"`
	Graded  int `json:"graded" db:"graded"`
	Correct int `json:"correct" db:"correct"`
}

// Ungraded is the number of open answers that were only acknowledged
func (s AggregateStats) Ungraded() int {
	return s.Total - s.Graded
}

// Incorrect is the number of graded answers that were wrong
func (s AggregateStats) Incorrect() int {
	return s.Graded - s.Correct
}

// Percent returns the share of correct answers among graded ones, rounded
func (s AggregateStats) Percent() int {
	if s.Graded == 0 {
		return 0
	}
	return (s.Correct*100 + s.Graded/2) / s.Graded
}
