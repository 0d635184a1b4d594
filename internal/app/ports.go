package app

import (
	"context"
	"time"

	"cyberhoot-service/internal/domain"
)

// UserDirectory resolves identities. Credentials are handled elsewhere.
type UserDirectory interface {
	FindUserByUsername(ctx context.Context, username string) (domain.User, error)
}

// SessionRepository persists game sessions with their roster and questions.
type SessionRepository interface {
	// CreateSession stores the session, its players and its questions as one unit.
	// It returns domain.ErrCodeTaken when another live session holds the code.
	CreateSession(ctx context.Context, session domain.GameSession) error
	FindSessionByCode(ctx context.Context, code string) (domain.GameSession, error)
	FindSessionByID(ctx context.Context, id string) (domain.GameSession, error)
	// AddPlayer appends a player atomically; adding a user already on the roster is a no-op.
	AddPlayer(ctx context.Context, sessionID string, player domain.Player) error
	UpdatePlayer(ctx context.Context, player domain.Player) error
	UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, start, end *time.Time) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// QuestionRepository loads questions by identity or grouping.
type QuestionRepository interface {
	FindQuestion(ctx context.Context, id string) (domain.Question, error)
	FindQuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
}

// QuizRepository persists user-owned quizzes.
type QuizRepository interface {
	// CreateQuiz stores the quiz and all of its questions as one unit.
	CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error
	FindQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error)
}

// AnswerRepository stores graded submissions. Rows are append-only.
type AnswerRepository interface {
	SaveAnswer(ctx context.Context, answer domain.QuestionAnswer) error
	FindAnswersByQuestion(ctx context.Context, questionID string) ([]domain.QuestionAnswer, error)
}

// Store bundles every persistence port; memory and postgres adapters implement it.
type Store interface {
	UserDirectory
	SessionRepository
	QuestionRepository
	QuizRepository
	AnswerRepository
}

// CodeRegistry reserves session codes across concurrent creators.
type CodeRegistry interface {
	// Reserve claims code; false means someone else holds it.
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
}

// LobbyStore keeps the in-process lobby of each live session, keyed by session id.
type LobbyStore interface {
	GetOrCreate(sessionID string) *Lobby
	Get(sessionID string) (*Lobby, bool)
	DeleteIfIdle(sessionID string)
}

// ExplanationRepository returns the explanation of a question, from cache when possible.
type ExplanationRepository interface {
	GetExplanation(ctx context.Context, question domain.Question) (string, error)
}

// Explainer produces an explanation for a question on a cache miss.
type Explainer interface {
	Explain(ctx context.Context, question domain.Question) (string, error)
}

// EventPublisher ships JSON events to a queue; nil disables events.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}
