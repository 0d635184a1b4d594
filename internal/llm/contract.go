package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"cyberhoot-service/internal/domain"
)

type envelope struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExtractContent returns choices[0].message.content from a chat-completions envelope.
func ExtractContent(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", domain.Wrap(domain.KindMalformedEnvelope, "generation envelope is not valid JSON", err)
	}
	if env.Error != nil && env.Error.Message != "" {
		return "", domain.MalformedEnvelopef("generation service reported an error: %s", env.Error.Message)
	}
	if len(env.Choices) == 0 || env.Choices[0].Message.Content == nil {
		return "", domain.MalformedEnvelopef("generation envelope has no choices[0].message.content")
	}
	content := strings.TrimSpace(*env.Choices[0].Message.Content)
	if content == "" {
		return "", domain.MalformedEnvelopef("generation envelope content is empty")
	}
	return content, nil
}

var (
	leadingFence  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	trailingFence = regexp.MustCompile("\\s*```\\s*$")
)

// StripCodeFence removes a surrounding ``` fence and narrows to the outermost braces.
func StripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = leadingFence.ReplaceAllString(t, "")
		t = trailingFence.ReplaceAllString(t, "")
	}
	first := strings.Index(t, "{")
	last := strings.LastIndex(t, "}")
	if first >= 0 && last > first {
		return strings.TrimSpace(t[first : last+1])
	}
	return t
}

// BatchSpec is what a question batch has to look like.
type BatchSpec struct {
	Type      domain.QuestionType
	Count     int
	TopicMode domain.TopicMode
	Taxonomy  []string
}

// Record is one validated question from a batch. Choice is set for mcq, Open for open.
type Record struct {
	Text        string
	SolvingTime int
	Choice      *domain.ChoiceForm
	Open        *domain.OpenForm
}

// Batch is the parsed generator output. Topic is only set in categorized mode.
type Batch struct {
	Topic   string
	Records []Record
}

type rawQuestion struct {
	Text        *string         `json:"text"`
	Options     []string        `json:"options"`
	Correct     *string         `json:"correct"`
	Answer      *string         `json:"answer"`
	SolvingTime json.RawMessage `json:"solvingTime"`
}

// ParseQuestionBatch validates content against the requested batch shape. Any deviation is a contract violation.
func ParseQuestionBatch(content string, shape BatchSpec) (Batch, error) {
	body := []byte(StripCodeFence(content))

	_, root, err := orderedObject(body)
	if err != nil {
		return Batch{}, domain.Wrap(domain.KindContractViolation, "generator output is not a JSON object", err)
	}

	var batch Batch
	if shape.TopicMode == domain.TopicCategorized {
		topic, err := categorizedTopic(root["topic"], shape.Taxonomy)
		if err != nil {
			return Batch{}, err
		}
		batch.Topic = topic
	}

	rawQuestions, ok := root["questions"]
	if !ok {
		return Batch{}, domain.ContractViolationf("missing key questions")
	}
	keys, fields, err := orderedObject(rawQuestions)
	if err != nil {
		return Batch{}, domain.Wrap(domain.KindContractViolation, "questions is not a JSON object", err)
	}

	if len(keys) != shape.Count {
		return Batch{}, countMismatch(shape.Count, keys, fields)
	}
	for i, key := range keys {
		want := fmt.Sprintf("question%d", i+1)
		if key == want {
			continue
		}
		if _, ok := fields[want]; !ok {
			return Batch{}, domain.ContractViolationf("missing key %s", want)
		}
		return Batch{}, domain.ContractViolationf("key %s out of order at position %d", key, i+1)
	}

	batch.Records = make([]Record, 0, shape.Count)
	for _, key := range keys {
		rec, err := parseRecord(key, fields[key], shape.Type)
		if err != nil {
			return Batch{}, err
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

func countMismatch(expected int, keys []string, fields map[string]json.RawMessage) error {
	var missing []string
	for i := 1; i <= expected; i++ {
		key := fmt.Sprintf("question%d", i)
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	delta := len(keys) - expected
	if len(missing) > 0 {
		return domain.ContractViolationf("expected %d questions but got %d (%+d); missing %s",
			expected, len(keys), delta, strings.Join(missing, ", "))
	}
	return domain.ContractViolationf("expected %d questions but got %d (%+d)", expected, len(keys), delta)
}

func parseRecord(key string, raw json.RawMessage, typ domain.QuestionType) (Record, error) {
	var q rawQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		return Record{}, domain.Wrap(domain.KindContractViolation, key+" is malformed", err)
	}
	if q.Text == nil || strings.TrimSpace(*q.Text) == "" {
		return Record{}, domain.ContractViolationf("%s: missing text", key)
	}
	solving, err := parseSolvingTime(q.SolvingTime)
	if err != nil {
		return Record{}, domain.ContractViolationf("%s: %v", key, err)
	}
	rec := Record{Text: strings.TrimSpace(*q.Text), SolvingTime: solving}

	switch typ {
	case domain.QuestionMCQ:
		if len(q.Options) != len(domain.OptionLabels) {
			return Record{}, domain.ContractViolationf("%s: expected %d options, got %d", key, len(domain.OptionLabels), len(q.Options))
		}
		options := make([]string, len(q.Options))
		for i, opt := range q.Options {
			opt = strings.TrimSpace(opt)
			if opt == "" {
				return Record{}, domain.ContractViolationf("%s: option %s is empty", key, domain.OptionLabels[i])
			}
			label, ok := optionLabel(opt)
			if !ok {
				return Record{}, domain.ContractViolationf("%s: option %d is not labelled", key, i+1)
			}
			if label != domain.OptionLabels[i] {
				return Record{}, domain.ContractViolationf("%s: option %d is labelled %s", key, i+1, label)
			}
			options[i] = opt
		}
		if q.Correct == nil {
			return Record{}, domain.ContractViolationf("%s: missing correct", key)
		}
		label, ok := answerLabel(*q.Correct)
		if !ok {
			return Record{}, domain.ContractViolationf("%s: correct %q is not one of A, B, C, D", key, *q.Correct)
		}
		rec.Choice = &domain.ChoiceForm{Options: options, Correct: label}
	case domain.QuestionOpen:
		if q.Answer == nil || strings.TrimSpace(*q.Answer) == "" {
			return Record{}, domain.ContractViolationf("%s: missing answer", key)
		}
		rec.Open = &domain.OpenForm{Answer: strings.TrimSpace(*q.Answer)}
	default:
		return Record{}, domain.Validationf("unrecognized question type %q", typ)
	}
	return rec, nil
}

var (
	optionPrefix = regexp.MustCompile(`^\(?([A-Da-d])[\)\.:]`)
	// a bare letter, or a letter and punctuation before any text; "a firewall" is not a label
	answerPrefix = regexp.MustCompile(`^\(?([A-Da-d])(?:[\.\):](?:\s.*)?)?$`)
)

func optionLabel(opt string) (string, bool) {
	m := optionPrefix.FindStringSubmatch(opt)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

// answerLabel accepts "B", "b", "B)", "(B)" and "B. text".
func answerLabel(raw string) (string, bool) {
	m := answerPrefix.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

func parseSolvingTime(raw json.RawMessage) (int, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, fmt.Errorf("solvingTime %s is not a number", trimmed)
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return 0, fmt.Errorf("solvingTime %q is not a number", s)
		}
		n = parsed
	}
	if n <= 0 {
		return 0, nil
	}
	return int(math.Round(n)), nil
}

func categorizedTopic(raw json.RawMessage, taxonomy []string) (string, error) {
	var topic string
	if raw == nil || json.Unmarshal(raw, &topic) != nil || strings.TrimSpace(topic) == "" {
		return "", domain.ContractViolationf("missing key topic")
	}
	topic = strings.TrimSpace(topic)
	if len(taxonomy) == 0 {
		return topic, nil
	}
	for _, t := range taxonomy {
		if strings.EqualFold(t, topic) {
			return t, nil
		}
	}
	return "", domain.ContractViolationf("topic %q is not in the configured taxonomy", topic)
}

// Grading is a validated open-answer verdict. Score is not clamped here.
type Grading struct {
	Correct     bool
	Score       int
	Explanation string
}

type rawGrading struct {
	Correct     *bool        `json:"correct"`
	Score       *json.Number `json:"score"`
	Explanation string       `json:"explanation"`
}

// ParseGradingResult validates the grading verdict; correct and score are required.
func ParseGradingResult(content string) (Grading, error) {
	var g rawGrading
	if err := json.Unmarshal([]byte(StripCodeFence(content)), &g); err != nil {
		return Grading{}, domain.Wrap(domain.KindContractViolation, "grading output is not valid JSON", err)
	}
	if g.Correct == nil {
		return Grading{}, domain.ContractViolationf("grading output: missing correct")
	}
	if g.Score == nil {
		return Grading{}, domain.ContractViolationf("grading output: missing score")
	}
	f, err := g.Score.Float64()
	if err != nil {
		return Grading{}, domain.ContractViolationf("grading output: score %q is not a number", g.Score.String())
	}
	f = math.Max(math.MinInt32, math.Min(math.MaxInt32, math.Round(f)))
	return Grading{Correct: *g.Correct, Score: int(f), Explanation: strings.TrimSpace(g.Explanation)}, nil
}

// orderedObject decodes a JSON object keeping key order and rejecting duplicates.
func orderedObject(raw []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}
	var keys []string
	fields := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, nil, err
		}
		if _, dup := fields[key]; dup {
			return nil, nil, fmt.Errorf("duplicate key %s", key)
		}
		keys = append(keys, key)
		fields[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, fields, nil
}
