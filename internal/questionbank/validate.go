package questionbank

import (
	"fmt"
	"strings"

	"github.com/example/questionbot/pkg/models"
)

const (
	MinOptions = 2
	MaxOptions = 6
)

// Issue is a problem found in one bank record
type Issue struct {
	Index   int // 1-based position in the file
	ID      string
	Message string
}

func (i Issue) String() string {
	if i.ID != "" {
		return fmt.Sprintf("question #%d (%s): %s", i.Index, i.ID, i.Message)
	}
	return fmt.Sprintf("question #%d: %s", i.Index, i.Message)
}

// Report collects validation results for a bank
type Report struct {
	Errors   []Issue
	Warnings []Issue
	Choice   int
	Open     int
	invalid  map[int]bool
}

// Valid reports whether no errors were found
func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

// Rejected reports whether the record at the 0-based position has errors
func (r *Report) Rejected(pos int) bool {
	return r.invalid[pos+1]
}

func (r *Report) fail(idx int, id, format string, args ...interface{}) {
	r.Errors = append(r.Errors, Issue{Index: idx, ID: id, Message: fmt.Sprintf(format, args...)})
	r.invalid[idx] = true
}

func (r *Report) warn(idx int, id, format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, Issue{Index: idx, ID: id, Message: fmt.Sprintf(format, args...)})
}

// Validate checks required fields, kinds, option counts, the correct index
// and id uniqueness.
func Validate(records []Record) *Report {
	report := &Report{invalid: make(map[int]bool)}
	seen := make(map[string]int)

	for i, rec := range records {
		idx := i + 1
		id := strings.TrimSpace(rec.ID)

		if id == "" {
			report.fail(idx, id, `missing "id"`)
		} else if first, dup := seen[id]; dup {
			report.fail(idx, id, "duplicate id, first used by question #%d", first)
		} else {
			seen[id] = idx
		}

		if strings.TrimSpace(rec.Topic) == "" {
			report.warn(idx, id, `missing "topic"`)
		}
		if strings.TrimSpace(rec.Question) == "" {
			report.fail(idx, id, `missing "question"`)
		}

		switch rec.Kind() {
		case models.KindChoice:
			report.Choice++
			validateChoice(report, idx, id, rec)
		case models.KindOpen:
			report.Open++
			if strings.TrimSpace(rec.Answer) == "" && strings.TrimSpace(rec.Explanation) == "" {
				report.warn(idx, id, "open question without answer or explanation")
			}
		case "":
			report.fail(idx, id, `missing "type"`)
		default:
			report.fail(idx, id, `unknown type %q (expected "choice" or "open")`, rec.Type)
		}
	}
	return report
}

func validateChoice(report *Report, idx int, id string, rec Record) {
	if len(rec.Options) < MinOptions {
		report.fail(idx, id, "needs at least %d options, got %d", MinOptions, len(rec.Options))
		return
	}
	if len(rec.Options) > MaxOptions {
		report.fail(idx, id, "too many options (%d, at most %d)", len(rec.Options), MaxOptions)
		return
	}
	for n, opt := range rec.Options {
		if strings.TrimSpace(opt) == "" {
			report.fail(idx, id, "option %d is empty", n+1)
		}
	}
	if rec.CorrectIndex == nil {
		report.fail(idx, id, `missing "correctAnswer"`)
		return
	}
	if *rec.CorrectIndex < 0 || *rec.CorrectIndex >= len(rec.Options) {
		report.fail(idx, id, `"correctAnswer" out of range (0-%d)`, len(rec.Options)-1)
	}
}
