package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrUnknownSubject is returned for subject keys outside the configured set
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrUnknownTime is returned for delivery times outside the configured set
	ErrUnknownTime = errors.New("unknown delivery time")
)

// Subject is a question bank key with its display name
type Subject struct {
	Key  string
	Name string
}

// Config holds all the configuration for the application
type Config struct {
	BotToken       string
	Timezone       string
	Location       *time.Location
	ReminderHours  int
	ReminderCron   string
	SendDelay      time.Duration
	DatabaseDriver string
	DatabaseURL    string
	QuestionsDir   string
	ErrorsLogPath  string
	LogMode        string
	Subjects       []Subject
	AvailableTimes []string
	DefaultSubject string
	DefaultTime    string
}

// Defaults mirror the production deployment
const (
	defaultTimezone       = "Europe/Moscow"
	defaultReminderHours  = 2
	defaultReminderCron   = "*/30 * * * *"
	defaultSendDelay      = time.Second
	defaultDatabaseDriver = "sqlite3"
	defaultDatabaseURL    = "data/bot.db"
	defaultQuestionsDir   = "questions"
	defaultErrorsLogPath  = "errors.log"
	defaultSubjects       = "math:Математика,russian:Русский язык,physics:Физика,social:Обществознание,history:История"
	defaultTimes          = "08:00,09:00,10:00,18:00,20:00"
	defaultSubjectKey     = "math"
	defaultTime           = "09:00"
)

// Load reads .env (if present) and the process environment.
// The bot token is required unless requireToken is false (authoring tools).
func Load(requireToken bool) (*Config, error) {
	// Ошибку игнорируем: .env не обязателен
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv, requireToken)
}

// FromLookup builds a Config from an arbitrary variable source
func FromLookup(lookup func(string) (string, bool), requireToken bool) (*Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := &Config{
		BotToken:       get("BOT_TOKEN", get("TELEGRAM_BOT_TOKEN", "")),
		Timezone:       get("TIMEZONE", defaultTimezone),
		ReminderCron:   get("REMINDER_CRON", defaultReminderCron),
		DatabaseDriver: get("DATABASE_DRIVER", defaultDatabaseDriver),
		DatabaseURL:    get("DATABASE_URL", defaultDatabaseURL),
		QuestionsDir:   get("QUESTIONS_DIR", defaultQuestionsDir),
		ErrorsLogPath:  get("ERRORS_LOG", defaultErrorsLogPath),
		LogMode:        get("LOG_MODE", "dev"),
		DefaultSubject: get("DEFAULT_SUBJECT", defaultSubjectKey),
		DefaultTime:    get("DEFAULT_TIME", defaultTime),
	}

	if requireToken && cfg.BotToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is not set")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	hours, err := strconv.Atoi(get("REMINDER_HOURS", strconv.Itoa(defaultReminderHours)))
	if err != nil || hours < 1 {
		return nil, fmt.Errorf("invalid REMINDER_HOURS: must be a positive integer")
	}
	cfg.ReminderHours = hours

	delay, err := time.ParseDuration(get("SEND_DELAY", defaultSendDelay.String()))
	if err != nil || delay < 0 {
		return nil, fmt.Errorf("invalid SEND_DELAY: %q", get("SEND_DELAY", ""))
	}
	cfg.SendDelay = delay

	switch cfg.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	cfg.Subjects, err = parseSubjects(get("SUBJECTS", defaultSubjects))
	if err != nil {
		return nil, err
	}
	cfg.AvailableTimes, err = parseTimes(get("AVAILABLE_TIMES", defaultTimes))
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateSubject(cfg.DefaultSubject); err != nil {
		return nil, fmt.Errorf("DEFAULT_SUBJECT: %w", err)
	}
	if err := cfg.ValidateTime(cfg.DefaultTime); err != nil {
		return nil, fmt.Errorf("DEFAULT_TIME: %w", err)
	}

	return cfg, nil
}

// ValidateSubject rejects keys outside the configured subject set
func (c *Config) ValidateSubject(key string) error {
	if _, ok := c.SubjectName(key); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSubject, key)
	}
	return nil
}

// ValidateTime rejects times outside the configured delivery slots
func (c *Config) ValidateTime(t string) error {
	for _, at := range c.AvailableTimes {
		if at == t {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTime, t)
}

// SubjectName returns the display name for a subject key
func (c *Config) SubjectName(key string) (string, bool) {
	for _, s := range c.Subjects {
		if s.Key == key {
			return s.Name, true
		}
	}
	return "", false
}

// SubjectKeys lists the configured subject keys in order
func (c *Config) SubjectKeys() []string {
	keys := make([]string, 0, len(c.Subjects))
	for _, s := range c.Subjects {
		keys = append(keys, s.Key)
	}
	return keys
}

func parseSubjects(raw string) ([]Subject, error) {
	var subjects []Subject
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, name, ok := strings.Cut(part, ":")
		key, name = strings.TrimSpace(key), strings.TrimSpace(name)
		if !ok || key == "" || name == "" {
			return nil, fmt.Errorf("invalid SUBJECTS entry %q: expected key:Name", part)
		}
		if strings.ContainsAny(key, " /") {
			return nil, fmt.Errorf("invalid subject key %q", key)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate subject key %q", key)
		}
		seen[key] = true
		subjects = append(subjects, Subject{Key: key, Name: name})
	}
	if len(subjects) == 0 {
		return nil, errors.New("SUBJECTS must not be empty")
	}
	return subjects, nil
}

func parseTimes(raw string) ([]string, error) {
	var times []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, _, err := ParseClock(part); err != nil {
			return nil, fmt.Errorf("invalid AVAILABLE_TIMES entry: %w", err)
		}
		times = append(times, part)
	}
	if len(times) == 0 {
		return nil, errors.New("AVAILABLE_TIMES must not be empty")
	}
	return times, nil
}

// ParseClock splits a strict "HH:MM" value into hour and minute
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != 5 {
		return 0, 0, fmt.Errorf("%q is not HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}
