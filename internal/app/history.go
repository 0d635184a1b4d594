package app

import (
	"context"
	"strings"
	"time"

	"cyberhoot-service/internal/domain"
)

// AnsweredQuestion is one graded answer to a question of a quiz.
type AnsweredQuestion struct {
	QuestionID   string    `json:"questionId"`
	QuestionText string    `json:"questionText"`
	UserAnswer   string    `json:"userAnswer"`
	Correct      bool      `json:"correct"`
	Score        int       `json:"score"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuizHistory is a quiz with every answer given to its questions.
type QuizHistory struct {
	Quiz              domain.Quiz        `json:"quiz"`
	AnsweredQuestions []AnsweredQuestion `json:"answeredQuestions"`
}

// HistoryService lists what a user has generated and answered.
type HistoryService struct {
	store Store
}

func NewHistoryService(store Store) *HistoryService {
	return &HistoryService{store: store}
}

// ListAnswered returns the user's quizzes, each with the answers that user gave.
// Quizzes without such answers are listed with an empty slice.
func (s *HistoryService) ListAnswered(ctx context.Context, username string) ([]QuizHistory, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.Validationf("username is required")
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	quizzes, err := s.store.FindQuizzesByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	history := make([]QuizHistory, 0, len(quizzes))
	for _, quiz := range quizzes {
		questions, err := s.store.FindQuestionsByQuiz(ctx, quiz.ID)
		if err != nil {
			return nil, err
		}
		entry := QuizHistory{Quiz: quiz, AnsweredQuestions: []AnsweredQuestion{}}
		for _, q := range questions {
			answers, err := s.store.FindAnswersByQuestion(ctx, q.ID)
			if err != nil {
				return nil, err
			}
			for _, a := range answers {
				if a.Username != user.Username {
					continue
				}
				entry.AnsweredQuestions = append(entry.AnsweredQuestions, AnsweredQuestion{
					QuestionID:   q.ID,
					QuestionText: q.Text,
					UserAnswer:   a.UserAnswer,
					Correct:      a.Correct,
					Score:        a.Score,
					CreatedAt:    a.CreatedAt,
				})
			}
		}
		history = append(history, entry)
	}
	return history, nil
}
