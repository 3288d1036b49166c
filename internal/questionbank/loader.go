package questionbank

import (
	"sync"

	"github.com/example/questionbot/internal/logger"
	"github.com/example/questionbot/pkg/models"
)

// Cache loads subject banks from a directory on first use and keeps them for
// the lifetime of the process. There is no invalidation: edits to bank files
// are picked up after a restart.
type Cache struct {
	dir string
	log *logger.Logger

	mu    sync.Mutex
	banks map[string][]models.Question
}

// NewCache creates a cache reading "<dir>/<subject>.json|yaml|yml"
func NewCache(dir string, log *logger.Logger) *Cache {
	return &Cache{
		dir:   dir,
		log:   log,
		banks: make(map[string][]models.Question),
	}
}

// Load returns the questions of a subject. A missing or malformed bank yields
// an empty slice, which is cached as well. Keys that cannot name a bank file
// are never cached.
func (c *Cache) Load(subject string) []models.Question {
	if !ValidSubject(subject) {
		c.log.Warn("rejected question bank key", "subject", subject)
		return []models.Question{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if questions, ok := c.banks[subject]; ok {
		return questions
	}
	questions := c.read(subject)
	c.banks[subject] = questions
	return questions
}

// Find looks up a single question of a subject by id
func (c *Cache) Find(subject, id string) (models.Question, bool) {
	for _, q := range c.Load(subject) {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

func (c *Cache) read(subject string) []models.Question {
	path, err := FindFile(c.dir, subject)
	if err != nil {
		c.log.Error("question bank not found", "subject", subject, "error", err)
		return []models.Question{}
	}

	records, err := ReadFile(path)
	if err != nil {
		c.log.Error("failed to load question bank", "subject", subject, "path", path, "error", err)
		return []models.Question{}
	}

	report := Validate(records)
	for _, issue := range report.Errors {
		c.log.Warn("skipping invalid question", "subject", subject, "issue", issue.String())
	}

	questions := make([]models.Question, 0, len(records))
	for i, rec := range records {
		if report.Rejected(i) {
			continue
		}
		questions = append(questions, rec.ToQuestion(subject))
	}

	c.log.Info("question bank loaded", "subject", subject, "questions", len(questions), "skipped", len(records)-len(questions))
	return questions
}
