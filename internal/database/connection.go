package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect opens the database for the given driver and makes sure the schema exists.
// For sqlite3 the DSN is a file path (or ":memory:").
func Connect(driver, dsn string) (*sqlx.DB, error) {
	if driver == "sqlite3" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		// Create data directory if it doesn't exist
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == "sqlite3" {
		// Enable foreign keys
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
		// SQLite doesn't support multiple writers
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// initializeSchema creates necessary tables if they don't exist
func initializeSchema(db *sqlx.DB) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	timestamp := "TIMESTAMP"
	if db.DriverName() == "postgres" {
		serial = "BIGSERIAL PRIMARY KEY"
		timestamp = "TIMESTAMPTZ"
	}

	statements := []struct {
		name  string
		query string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				user_id BIGINT PRIMARY KEY,
				chat_id BIGINT NOT NULL,
				username TEXT NOT NULL DEFAULT '',
				subject TEXT NOT NULL,
				notification_time TEXT NOT NULL,
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at ` + timestamp + ` NOT NULL
			)`},
		{"user_stats", `
			CREATE TABLE IF NOT EXISTS user_stats (
				id ` + serial + `,
				user_id BIGINT NOT NULL REFERENCES users(user_id),
				question_id TEXT NOT NULL,
				subject TEXT NOT NULL,
				answered_correctly BOOLEAN,
				answered_at ` + timestamp + ` NOT NULL
			)`},
		{"sent_questions", `
			CREATE TABLE IF NOT EXISTS sent_questions (
				id ` + serial + `,
				user_id BIGINT NOT NULL REFERENCES users(user_id),
				question_id TEXT NOT NULL,
				subject TEXT NOT NULL,
				sent_at ` + timestamp + ` NOT NULL,
				answered_at ` + timestamp + `,
				reminder_sent BOOLEAN NOT NULL DEFAULT FALSE
			)`},
		{"user_stats index", `CREATE INDEX IF NOT EXISTS idx_user_stats_user ON user_stats (user_id, subject)`},
		{"sent_questions index", `CREATE INDEX IF NOT EXISTS idx_sent_questions_pending ON sent_questions (user_id, answered_at, reminder_sent)`},
	}

	for _, st := range statements {
		if _, err := db.Exec(st.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", st.name, err)
		}
	}
	return nil
}

// Clock supplies the current time to repositories
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return dbTime(time.Now())
	}
	return dbTime(c())
}

// dbTime normalises timestamps so that SQLite text comparison and
// PostgreSQL comparison agree.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
