package domain

import (
	"strings"
	"time"
)

// QuestionType tags which payload a Question carries.
type QuestionType string

const (
	QuestionMCQ  QuestionType = "mcq"
	QuestionOpen QuestionType = "open"
)

// ParseQuestionType accepts the two recognized literals, ignoring case and padding.
func ParseQuestionType(raw string) (QuestionType, error) {
	switch t := QuestionType(strings.ToLower(strings.TrimSpace(raw))); t {
	case QuestionMCQ, QuestionOpen:
		return t, nil
	}
	return "", Validationf("unrecognized question type %q (want mcq or open)", raw)
}

// OptionLabels are the positional labels of a closed-form question.
var OptionLabels = []string{"A", "B", "C", "D"}

// ChoiceForm is the closed-form payload: exactly four options and the correct label.
type ChoiceForm struct {
	Options []string `json:"options"`
	Correct string   `json:"correct"`
}

// OpenForm is the free-text payload.
type OpenForm struct {
	Answer string `json:"answer"`
}

// Question is a tagged variant: Choice is set iff Type is mcq, Open iff Type is open.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"text"`
	Choice      *ChoiceForm  `json:"choice,omitempty"`
	Open        *OpenForm    `json:"open,omitempty"`
	Language    string       `json:"language"`
	Topic       string       `json:"topic"`
	Difficulty  int          `json:"difficulty"`
	SolvingTime int          `json:"solvingTime"`
	QuizID      string       `json:"quizId,omitempty"`
	SessionID   string       `json:"sessionId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Correct returns the canonical answer: a label for mcq, free text for open.
func (q Question) Correct() string {
	switch q.Type {
	case QuestionMCQ:
		if q.Choice != nil {
			return q.Choice.Correct
		}
	case QuestionOpen:
		if q.Open != nil {
			return q.Open.Answer
		}
	}
	return ""
}

// Options returns the mcq options or nil.
func (q Question) Options() []string {
	if q.Type == QuestionMCQ && q.Choice != nil {
		return q.Choice.Options
	}
	return nil
}

// DefaultSolvingTime is the per-question time budget when the generator omits one.
func DefaultSolvingTime(t QuestionType, difficulty int) int {
	if t == QuestionOpen {
		return difficulty * 60
	}
	return difficulty * 10
}

// TopicMode selects where a question's topic comes from.
type TopicMode string

const (
	// TopicVerbatim keeps the caller's topic string.
	TopicVerbatim TopicMode = "verbatim"
	// TopicCategorized asks the generator to file the batch under a fixed taxonomy.
	TopicCategorized TopicMode = "categorized"
)
