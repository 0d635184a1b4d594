package app

import (
	"context"
	"strings"

	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/llm"
	"cyberhoot-service/internal/prompt"
)

// GeneratedExplainer asks the generator why the canonical answer is right.
type GeneratedExplainer struct {
	gateway llm.Gateway
	prompts prompt.Builder
}

func NewGeneratedExplainer(gateway llm.Gateway, prompts prompt.Builder) *GeneratedExplainer {
	return &GeneratedExplainer{gateway: gateway, prompts: prompts}
}

func (e *GeneratedExplainer) Explain(ctx context.Context, q domain.Question) (string, error) {
	raw, err := e.gateway.Generate(ctx, e.prompts.Explanation(q.Text, q.Correct()))
	if err != nil {
		return "", gatewayError("explanation", err)
	}
	content, err := llm.ExtractContent(raw)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// ExplanationService serves explanations for stored questions. An explanation
// gives the canonical answer away, so it is served only to a user who has
// answered the question, or to anyone once the question's session has finished.
type ExplanationService struct {
	questions    QuestionRepository
	answers      AnswerRepository
	sessions     SessionRepository
	explanations ExplanationRepository
}

func NewExplanationService(store Store, explanations ExplanationRepository) *ExplanationService {
	return &ExplanationService{
		questions:    store,
		answers:      store,
		sessions:     store,
		explanations: explanations,
	}
}

// Explain returns the explanation of the question with the given id for username.
func (s *ExplanationService) Explain(ctx context.Context, questionID, username string) (string, error) {
	questionID = strings.TrimSpace(questionID)
	if questionID == "" {
		return "", domain.Validationf("question id is required")
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return "", domain.Validationf("username is required")
	}
	q, err := s.questions.FindQuestion(ctx, questionID)
	if err != nil {
		return "", err
	}
	open, err := s.revealed(ctx, q, username)
	if err != nil {
		return "", err
	}
	if !open {
		return "", domain.Validationf("answer question %s before asking for its explanation", q.ID)
	}
	return s.explanations.GetExplanation(ctx, q)
}

func (s *ExplanationService) revealed(ctx context.Context, q domain.Question, username string) (bool, error) {
	answers, err := s.answers.FindAnswersByQuestion(ctx, q.ID)
	if err != nil {
		return false, err
	}
	for _, a := range answers {
		if a.Username == username {
			return true, nil
		}
	}
	if q.SessionID == "" {
		return false, nil
	}
	session, err := s.sessions.FindSessionByID(ctx, q.SessionID)
	if err != nil {
		return false, err
	}
	return session.Status == domain.SessionFinished, nil
}
