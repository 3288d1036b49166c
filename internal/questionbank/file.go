package questionbank

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/questionbot/pkg/models"
	"gopkg.in/yaml.v3"
)

// Extensions tried, in order, when looking up a subject bank
var Extensions = []string{".json", ".yaml", ".yml"}

// legacyChoiceKind is the kind name used by older bank files
const legacyChoiceKind = "test"

// Record is the on-disk shape of a question. CorrectIndex is a pointer so
// that a missing value can be told apart from index 0.
type Record struct {
	ID           string   `json:"id" yaml:"id"`
	Topic        string   `json:"topic,omitempty" yaml:"topic,omitempty"`
	Type         string   `json:"type" yaml:"type"`
	Question     string   `json:"question" yaml:"question"`
	Options      []string `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectIndex *int     `json:"correctAnswer,omitempty" yaml:"correctAnswer,omitempty"`
	Answer       string   `json:"answer,omitempty" yaml:"answer,omitempty"`
	Explanation  string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// Kind normalises the record type, mapping the legacy "test" to choice
func (r Record) Kind() models.QuestionKind {
	kind := strings.ToLower(strings.TrimSpace(r.Type))
	if kind == legacyChoiceKind {
		return models.KindChoice
	}
	return models.QuestionKind(kind)
}

// ToQuestion converts a record into a question of the given subject
func (r Record) ToQuestion(subject string) models.Question {
	q := models.Question{
		ID:          strings.TrimSpace(r.ID),
		Subject:     subject,
		Topic:       r.Topic,
		Kind:        r.Kind(),
		Prompt:      r.Question,
		Options:     r.Options,
		Answer:      r.Answer,
		Explanation: r.Explanation,
	}
	if r.CorrectIndex != nil {
		q.CorrectIndex = *r.CorrectIndex
	}
	return q
}

// RecordFromQuestion is the inverse of Record.Question
func RecordFromQuestion(q models.Question) Record {
	r := Record{
		ID:          q.ID,
		Topic:       q.Topic,
		Type:        string(q.Kind),
		Question:    q.Prompt,
		Options:     q.Options,
		Answer:      q.Answer,
		Explanation: q.Explanation,
	}
	if q.IsChoice() {
		idx := q.CorrectIndex
		r.CorrectIndex = &idx
	}
	return r
}

// ErrBadSubject is returned for subject keys that cannot name a bank file
var ErrBadSubject = errors.New("invalid subject key")

// ValidSubject reports whether subject can name a file directly inside a
// bank directory
func ValidSubject(subject string) bool {
	return subject != "" && subject != "." && !strings.Contains(subject, "..") &&
		!strings.ContainsAny(subject, `/\`)
}

// FindFile returns the bank file for a subject inside dir
func FindFile(dir, subject string) (string, error) {
	if !ValidSubject(subject) {
		return "", fmt.Errorf("%w: %q", ErrBadSubject, subject)
	}
	for _, ext := range Extensions {
		path := filepath.Join(dir, subject+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no question bank for subject %q in %s: %w", subject, dir, os.ErrNotExist)
}

// ReadFile parses a bank file (JSON or YAML by extension)
func ReadFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes bank content. ext selects the format (".json", ".yaml", ".yml").
func Parse(data []byte, ext string) ([]Record, error) {
	var records []Record
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid JSON question bank: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("invalid YAML question bank: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported question bank format %q", ext)
	}
	return records, nil
}

// WriteFile stores records as a bank file (JSON or YAML by extension)
func WriteFile(path string, records []Record) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(records, "", "  ")
		data = append(data, '\n')
	case ".yaml", ".yml":
		data, err = yaml.Marshal(records)
	default:
		return fmt.Errorf("unsupported question bank format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode question bank: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
