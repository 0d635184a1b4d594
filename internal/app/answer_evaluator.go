package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/llm"
	"cyberhoot-service/internal/prompt"
	"github.com/google/uuid"
)

// ScorePolicy bounds every stored score and fixes the mcq points.
type ScorePolicy struct {
	Min             int
	Max             int
	CorrectPoints   int
	IncorrectPoints int
}

// DefaultScorePolicy scores on 0..100 with full marks for a right mcq answer.
func DefaultScorePolicy() ScorePolicy {
	return ScorePolicy{Min: 0, Max: 100, CorrectPoints: 100, IncorrectPoints: 0}
}

// Clamp forces score into [Min, Max].
func (p ScorePolicy) Clamp(score int) int {
	if score < p.Min {
		return p.Min
	}
	if score > p.Max {
		return p.Max
	}
	return score
}

// Grade is the verdict on one answer.
type Grade struct {
	Correct     bool
	Score       int
	Explanation string
}

// SubmitRequest is one player's answer. Username is optional outside of sessions;
// Score overrides the mcq policy points when set.
type SubmitRequest struct {
	QuestionID string
	Username   string
	Answer     string
	Score      *int
}

// SubmitResult carries the stored answer and, for session questions, the updated
// roster and the caller's seat as stored after the answer.
type SubmitResult struct {
	Answer domain.QuestionAnswer
	Roster *Roster
	Player *domain.Player
}

// AnswerEvaluator grades answers and keeps player scores in step.
type AnswerEvaluator struct {
	gateway   llm.Gateway
	prompts   prompt.Builder
	policy    ScorePolicy
	questions QuestionRepository
	answers   AnswerRepository
	sessions  SessionRepository
	users     UserDirectory
	lobbies   LobbyStore
	events    events
	now       func() time.Time
}

// EvaluatorDeps groups the evaluator's collaborators.
type EvaluatorDeps struct {
	Gateway   llm.Gateway
	Prompts   prompt.Builder
	Policy    ScorePolicy
	Store     Store
	Lobbies   LobbyStore
	Publisher EventPublisher
	Queue     string
}

func NewAnswerEvaluator(deps EvaluatorDeps) *AnswerEvaluator {
	return &AnswerEvaluator{
		gateway:   deps.Gateway,
		prompts:   deps.Prompts,
		policy:    deps.Policy,
		questions: deps.Store,
		answers:   deps.Store,
		sessions:  deps.Store,
		users:     deps.Store,
		lobbies:   deps.Lobbies,
		events:    newEvents(deps.Publisher, deps.Queue),
		now:       time.Now,
	}
}

// Grade scores answer against q. mcq never touches the network; open answers are
// graded by the generator and the score clamped. Nothing is retried here.
func (e *AnswerEvaluator) Grade(ctx context.Context, q domain.Question, answer string, override *int) (Grade, error) {
	answer = strings.TrimSpace(answer)
	switch q.Type {
	case domain.QuestionMCQ:
		correct := strings.EqualFold(answer, q.Correct())
		score := e.policy.IncorrectPoints
		if correct {
			score = e.policy.CorrectPoints
		}
		if override != nil {
			score = *override
		}
		return Grade{Correct: correct, Score: e.policy.Clamp(score)}, nil

	case domain.QuestionOpen:
		raw, err := e.gateway.Generate(ctx, e.prompts.Grading(q.Text, answer))
		if err != nil {
			return Grade{}, gatewayError("answer grading", err)
		}
		content, err := llm.ExtractContent(raw)
		if err != nil {
			return Grade{}, domain.Wrap(domain.KindGradingFailed, "grading response unusable", err)
		}
		verdict, err := llm.ParseGradingResult(content)
		if err != nil {
			return Grade{}, domain.Wrap(domain.KindGradingFailed, "grading response unusable", err)
		}
		return Grade{
			Correct:     verdict.Correct,
			Score:       e.policy.Clamp(verdict.Score),
			Explanation: verdict.Explanation,
		}, nil
	}
	return Grade{}, domain.Validationf("unrecognized question type %q", q.Type)
}

// Submit grades and stores an answer. A named player answers each session question
// once; a repeat fails with ErrAlreadyAnswered. For a player on the roster it also
// updates the tallies under the lobby lock.
func (e *AnswerEvaluator) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	questionID := strings.TrimSpace(req.QuestionID)
	if questionID == "" {
		return SubmitResult{}, domain.Validationf("question id is required")
	}
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		return SubmitResult{}, domain.Validationf("answer is required")
	}
	username := strings.TrimSpace(req.Username)

	q, err := e.questions.FindQuestion(ctx, questionID)
	if err != nil {
		return SubmitResult{}, err
	}

	inSession := q.SessionID != "" && username != ""
	if inSession {
		// fail fast before paying for grading; checked again under the lobby lock
		if err := e.firstAnswer(ctx, q.ID, username); err != nil {
			return SubmitResult{}, err
		}
	}

	grade, err := e.Grade(ctx, q, answer, req.Score)
	if err != nil {
		return SubmitResult{}, err
	}

	now := e.now()
	record := domain.QuestionAnswer{
		ID:          uuid.NewString(),
		QuestionID:  q.ID,
		Username:    username,
		UserAnswer:  answer,
		Correct:     grade.Correct,
		Score:       grade.Score,
		Explanation: grade.Explanation,
		CreatedAt:   now,
	}
	result := SubmitResult{Answer: record}
	if inSession {
		seat, roster, err := e.recordInSession(ctx, q, record)
		if err != nil {
			return SubmitResult{}, err
		}
		result.Player, result.Roster = seat, roster
	} else if err := e.save(ctx, record); err != nil {
		return SubmitResult{}, err
	}

	e.events.publish(ctx, Event{
		Type:       EventAnswerGraded,
		SessionID:  q.SessionID,
		Username:   username,
		QuestionID: q.ID,
		Correct:    &record.Correct,
		Score:      &record.Score,
		OccurredAt: now,
	})
	return result, nil
}

func (e *AnswerEvaluator) save(ctx context.Context, record domain.QuestionAnswer) error {
	if err := e.answers.SaveAnswer(ctx, record); err != nil {
		return fmt.Errorf("store answer: %w", err)
	}
	return nil
}

// firstAnswer fails with ErrAlreadyAnswered when username already answered the question.
func (e *AnswerEvaluator) firstAnswer(ctx context.Context, questionID, username string) error {
	prior, err := e.answers.FindAnswersByQuestion(ctx, questionID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	for _, a := range prior {
		if a.Username == username {
			return domain.ErrAlreadyAnswered
		}
	}
	return nil
}

// recordInSession stores a session answer and credits the player under the lobby
// lock, so each player gets one answer per question. Only correct answers add to
// the score, and a finished session credits nothing. A user who is not on the
// roster gets no credit and no error.
func (e *AnswerEvaluator) recordInSession(ctx context.Context, q domain.Question, record domain.QuestionAnswer) (*domain.Player, *Roster, error) {
	user, err := e.users.FindUserByUsername(ctx, record.Username)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, e.save(ctx, record)
	}
	if err != nil {
		return nil, nil, err
	}
	session, err := e.sessions.FindSessionByID(ctx, q.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil, e.save(ctx, record)
	}
	if err != nil {
		return nil, nil, err
	}

	var (
		seat     *domain.Player
		credited bool
	)
	lobby := e.lobbies.GetOrCreate(session.ID)
	roster, err := lobby.mutate(func() (domain.GameSession, error) {
		if err := e.firstAnswer(ctx, q.ID, record.Username); err != nil {
			return domain.GameSession{}, err
		}
		if err := e.save(ctx, record); err != nil {
			return domain.GameSession{}, err
		}
		current, err := e.sessions.FindSessionByID(ctx, session.ID)
		if err != nil {
			return domain.GameSession{}, err
		}
		for i, p := range current.Players {
			if p.UserID != user.ID {
				continue
			}
			if current.Status == domain.SessionFinished {
				seat = &p
				return current, errUnchanged
			}
			answeredAt := record.CreatedAt
			if record.Correct {
				p.Score += record.Score
				p.CorrectAnswers++
			}
			p.CurrentAnswer = record.UserAnswer
			p.AnswerTime = &answeredAt
			if err := e.sessions.UpdatePlayer(ctx, p); err != nil {
				return domain.GameSession{}, fmt.Errorf("update player: %w", err)
			}
			current.Players[i] = p
			seat, credited = &p, true
			return current, nil
		}
		return current, errUnchanged
	})
	if err != nil {
		return nil, nil, err
	}
	if !credited {
		return seat, nil, nil
	}
	return seat, &roster, nil
}
