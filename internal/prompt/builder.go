package prompt

import (
	"fmt"
	"strings"

	"cyberhoot-service/internal/domain"
)

// Builder renders the fixed prompt templates. It performs no I/O.
type Builder struct {
	TopicMode domain.TopicMode
	Taxonomy  []string
	MinScore  int
	MaxScore  int
}

// NewBuilder returns a Builder with the verbatim topic policy and the given score range.
func NewBuilder(minScore, maxScore int) Builder {
	return Builder{TopicMode: domain.TopicVerbatim, MinScore: minScore, MaxScore: maxScore}
}

const questionHeader = `You are a professional instructor writing quiz questions.
Write exactly %[1]d %[2]s question(s) at difficulty %[3]d on a scale of 1 to 10, in %[4]s, about %[5]s.
`

const mcqRules = `Every question is multiple choice with EXACTLY four options labelled "A) ", "B) ", "C) ", "D) " in that order.
"correct" is the single letter of the right option (A, B, C or D).
`

const openRules = `Every question is open-ended. "answer" holds a concise model answer used to grade candidates.
`

const formatRules = `"solvingTime" is the number of seconds a player should get for the question.
Respond ONLY with raw JSON (no markdown, no backticks, no commentary) of exactly this shape:
%s
The "questions" object must contain exactly %d keys, "question1" through "question%d", in that order.`

const gradingTemplate = `You are an examiner. Grade the candidate's answer with an integer score from %d to %d and state
whether it is essentially correct. Also give a one-sentence explanation.
Respond ONLY with raw JSON (no markdown, no backticks) like:
{"correct":true,"score":%d,"explanation":"..."}
Question: %s
Candidate answer: %s`

const explanationTemplate = `Explain concisely why the following is the correct answer.
Question: %s
Correct answer: %s`

// Questions validates p and renders the batch generation prompt.
func (b Builder) Questions(p Params) (string, error) {
	p, err := p.Validate()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, questionHeader, p.Count, p.Type, p.Difficulty, p.Language, p.Topic)
	if p.Type == domain.QuestionMCQ {
		sb.WriteString(mcqRules)
	} else {
		sb.WriteString(openRules)
	}
	if b.TopicMode == domain.TopicCategorized {
		fmt.Fprintf(&sb, "Set \"topic\" to the single best category for the batch, chosen from: %s.\n",
			strings.Join(b.Taxonomy, ", "))
	}
	fmt.Fprintf(&sb, formatRules, b.shape(p), p.Count, p.Count)
	return sb.String(), nil
}

// shape renders the literal JSON skeleton the generator has to reproduce.
func (b Builder) shape(p Params) string {
	var entry string
	if p.Type == domain.QuestionMCQ {
		entry = `{"text":"...","options":["A) ...","B) ...","C) ...","D) ..."],"correct":"A","solvingTime":%d}`
	} else {
		entry = `{"text":"...","answer":"...","solvingTime":%d}`
	}
	entry = fmt.Sprintf(entry, domain.DefaultSolvingTime(p.Type, p.Difficulty))

	var sb strings.Builder
	sb.WriteString("{")
	if b.TopicMode == domain.TopicCategorized {
		sb.WriteString(`"topic":"...",`)
	}
	sb.WriteString(`"questions":{`)
	for i := 1; i <= p.Count; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `"question%d":%s`, i, entry)
	}
	sb.WriteString("}}")
	return sb.String()
}

// Grading renders the open-answer grading prompt.
func (b Builder) Grading(questionText, candidate string) string {
	return fmt.Sprintf(gradingTemplate, b.MinScore, b.MaxScore, b.MaxScore, questionText, candidate)
}

// Explanation renders the explanation prompt for a question and its canonical answer.
func (b Builder) Explanation(questionText, correct string) string {
	return fmt.Sprintf(explanationTemplate, questionText, correct)
}
