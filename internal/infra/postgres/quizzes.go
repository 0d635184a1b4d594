package postgres

import (
	"context"
	"fmt"

	"cyberhoot-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

// CreateQuiz stores the quiz and its questions in one transaction, keeping their order.
func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz, questions []domain.Question) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO quizzes (id, user_id, name, description, language, type, time_limit, topic, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			quiz.ID, quiz.UserID, quiz.Name, quiz.Description, quiz.Language, string(quiz.Type),
			quiz.TimeLimit, quiz.Topic, quiz.CreatedAt)
		if err != nil {
			switch code, _ := pgCode(err); code {
			case uniqueViolation:
				return &domain.Error{Kind: domain.KindConflict, Msg: "quiz already exists"}
			case foreignKeyViolation:
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("insert quiz: %w", err)
		}
		return insertQuestions(ctx, tx, questions, quiz.ID, "")
	})
}

func (s *Store) FindQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, user_id::text, name, description, language, type, time_limit, topic, created_at
		 FROM quizzes WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()
	var out []domain.Quiz
	for rows.Next() {
		var (
			q    domain.Quiz
			kind string
		)
		if err := rows.Scan(&q.ID, &q.UserID, &q.Name, &q.Description, &q.Language, &kind,
			&q.TimeLimit, &q.Topic, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		q.Type = domain.QuestionType(kind)
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveAnswer appends a graded submission.
func (s *Store) SaveAnswer(ctx context.Context, a domain.QuestionAnswer) error {
	if _, err := uuid.Parse(a.QuestionID); err != nil {
		return domain.ErrQuestionNotFound
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO question_answers (id, question_id, username, user_answer, correct, score, explanation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.QuestionID, a.Username, a.UserAnswer, a.Correct, a.Score, a.Explanation, a.CreatedAt)
	if err != nil {
		if code, _ := pgCode(err); code == foreignKeyViolation {
			return domain.ErrQuestionNotFound
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *Store) FindAnswersByQuestion(ctx context.Context, questionID string) ([]domain.QuestionAnswer, error) {
	if _, err := uuid.Parse(questionID); err != nil {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, question_id::text, username, user_answer, correct, score, explanation, created_at
		 FROM question_answers WHERE question_id = $1 ORDER BY created_at, id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()
	var out []domain.QuestionAnswer
	for rows.Next() {
		var a domain.QuestionAnswer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Username, &a.UserAnswer, &a.Correct,
			&a.Score, &a.Explanation, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
