package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/llm"
	"cyberhoot-service/internal/prompt"
	"github.com/google/uuid"
)

// QuizTimeLimit is the time limit, in seconds, of quizzes created by Generate.
const QuizTimeLimit = 150

// QuestionPipeline turns generation parameters into validated questions.
type QuestionPipeline struct {
	gateway llm.Gateway
	prompts prompt.Builder
	users   UserDirectory
	quizzes QuizRepository
	now     func() time.Time
}

func NewQuestionPipeline(gateway llm.Gateway, prompts prompt.Builder, users UserDirectory, quizzes QuizRepository) *QuestionPipeline {
	return &QuestionPipeline{
		gateway: gateway,
		prompts: prompts,
		users:   users,
		quizzes: quizzes,
		now:     time.Now,
	}
}

// GenerateRequest asks for a quiz of generated questions owned by Username.
type GenerateRequest struct {
	Username string
	Params   prompt.Params
}

// GenerateResult is the persisted quiz and its questions, canonical answers included.
type GenerateResult struct {
	Quiz      domain.Quiz
	Questions []domain.Question
}

// Draft runs one generation round trip and returns normalized, unsaved questions.
// Either every requested question comes back or none do.
func (p *QuestionPipeline) Draft(ctx context.Context, params prompt.Params) ([]domain.Question, error) {
	params, err := params.Validate()
	if err != nil {
		return nil, err
	}
	text, err := p.prompts.Questions(params)
	if err != nil {
		return nil, err
	}

	raw, err := p.gateway.Generate(ctx, text)
	if err != nil {
		return nil, gatewayError("question generation", err)
	}
	content, err := llm.ExtractContent(raw)
	if err != nil {
		return nil, err
	}
	batch, err := llm.ParseQuestionBatch(content, llm.BatchSpec{
		Type:      params.Type,
		Count:     params.Count,
		TopicMode: p.prompts.TopicMode,
		Taxonomy:  p.prompts.Taxonomy,
	})
	if err != nil {
		return nil, err
	}

	topic := params.Topic
	if p.prompts.TopicMode == domain.TopicCategorized && batch.Topic != "" {
		topic = batch.Topic
	}
	now := p.now()
	questions := make([]domain.Question, 0, len(batch.Records))
	for _, rec := range batch.Records {
		solving := rec.SolvingTime
		if solving <= 0 {
			solving = domain.DefaultSolvingTime(params.Type, params.Difficulty)
		}
		questions = append(questions, domain.Question{
			ID:          uuid.NewString(),
			Type:        params.Type,
			Text:        rec.Text,
			Choice:      rec.Choice,
			Open:        rec.Open,
			Language:    params.Language,
			Topic:       topic,
			Difficulty:  params.Difficulty,
			SolvingTime: solving,
			CreatedAt:   now,
		})
	}
	return questions, nil
}

// Generate drafts questions for the user and stores them under a new quiz in one unit.
func (p *QuestionPipeline) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return GenerateResult{}, domain.Validationf("username is required")
	}
	params, err := req.Params.Validate()
	if err != nil {
		return GenerateResult{}, err
	}
	user, err := p.users.FindUserByUsername(ctx, username)
	if err != nil {
		return GenerateResult{}, err
	}

	questions, err := p.Draft(ctx, params)
	if err != nil {
		return GenerateResult{}, err
	}

	topic := questions[0].Topic
	quiz := domain.Quiz{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Name:        topic + " Quiz",
		Description: fmt.Sprintf("%s quiz in %s", topic, params.Language),
		Language:    params.Language,
		Type:        params.Type,
		TimeLimit:   QuizTimeLimit,
		Topic:       topic,
		CreatedAt:   p.now(),
	}
	for i := range questions {
		questions[i].QuizID = quiz.ID
	}
	if err := p.quizzes.CreateQuiz(ctx, quiz, questions); err != nil {
		return GenerateResult{}, fmt.Errorf("store generated quiz: %w", err)
	}
	return GenerateResult{Quiz: quiz, Questions: questions}, nil
}

// gatewayError keeps domain errors as they are and marks anything else as a gateway failure.
func gatewayError(op string, err error) error {
	if domain.KindOf(err) != domain.KindInternal {
		return err
	}
	return domain.Wrap(domain.KindGateway, op+" failed", err)
}
