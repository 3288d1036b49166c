package models

// QuestionKind distinguishes multiple-choice questions from free-form ones
type QuestionKind string

const (
	// KindChoice is a question with a fixed set of options and one correct index
	KindChoice QuestionKind = "choice"
	// KindOpen is a free-form question with an optional model answer
	KindOpen QuestionKind = "open"
)

// Question is a single practice question from a subject bank.
// Questions are immutable once loaded.
type Question struct {
	ID           string       `json:"id" yaml:"id"`
	Subject      string       `json:"-" yaml:"-"` // Set by the loader from the bank key
	Topic        string       `json:"topic,omitempty" yaml:"topic,omitempty"`
	Kind         QuestionKind `json:"type" yaml:"type"`
	Prompt       string       `json:"question" yaml:"question"`
	Options      []string     `json:"options,omitempty" yaml:"options,omitempty"`
	CorrectIndex int          `json:"correctAnswer" yaml:"correctAnswer"`
	Answer       string       `json:"answer,omitempty" yaml:"answer,omitempty"`
	Explanation  string       `json:"explanation,omitempty" yaml:"explanation,omitempty"`
}

// IsChoice reports whether the question is graded by option index
func (q Question) IsChoice() bool {
	return q.Kind == KindChoice
}

// CorrectOption returns the text of the correct option, or "" for open questions
func (q Question) CorrectOption() string {
	if !q.IsChoice() || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return ""
	}
	return q.Options[q.CorrectIndex]
}
