package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cyberhoot-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"

	liveCodeConstraint = "game_sessions_live_code_key"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Store persists users, sessions, quizzes, questions and answers in Postgres.
type Store struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, clock: time.Now}
}

// AddUser registers username; registering an existing name returns the existing user.
func (s *Store) AddUser(ctx context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.Validationf("username is required")
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO app_users (id, username, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (username) DO NOTHING`,
		uuid.NewString(), username, s.clock())
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.FindUserByUsername(ctx, username)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, username, created_at FROM app_users WHERE username = $1`,
		strings.TrimSpace(username)).Scan(&u.ID, &u.Username, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func pgCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// nullable maps the zero value to SQL NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

const questionColumns = `id::text, type, text, options, correct, language, topic, difficulty,
	solving_time, COALESCE(quiz_id::text, ''), COALESCE(session_id::text, ''), created_at`

func insertQuestions(ctx context.Context, q querier, questions []domain.Question, quizID, sessionID string) error {
	for i, question := range questions {
		var options interface{}
		if opts := question.Options(); opts != nil {
			raw, err := json.Marshal(opts)
			if err != nil {
				return fmt.Errorf("encode options: %w", err)
			}
			options = raw
		}
		_, err := q.Exec(ctx,
			`INSERT INTO questions (id, position, type, text, options, correct, language, topic,
			   difficulty, solving_time, quiz_id, session_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			question.ID, i, string(question.Type), question.Text, options, question.Correct(),
			question.Language, question.Topic, question.Difficulty, question.SolvingTime,
			nullable(quizID), nullable(sessionID), question.CreatedAt)
		if err != nil {
			if code, _ := pgCode(err); code == uniqueViolation {
				return &domain.Error{Kind: domain.KindConflict, Msg: "question already exists"}
			}
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q       domain.Question
		kind    string
		options []byte
		correct string
	)
	err := row.Scan(&q.ID, &kind, &q.Text, &options, &correct, &q.Language, &q.Topic,
		&q.Difficulty, &q.SolvingTime, &q.QuizID, &q.SessionID, &q.CreatedAt)
	if err != nil {
		return domain.Question{}, err
	}
	q.Type = domain.QuestionType(kind)
	switch q.Type {
	case domain.QuestionMCQ:
		choice := &domain.ChoiceForm{Correct: correct}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &choice.Options); err != nil {
				return domain.Question{}, fmt.Errorf("decode options of %s: %w", q.ID, err)
			}
		}
		q.Choice = choice
	case domain.QuestionOpen:
		q.Open = &domain.OpenForm{Answer: correct}
	}
	return q, nil
}

func queryQuestions(ctx context.Context, q querier, sql string, arg interface{}) ([]domain.Question, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()
	var out []domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, question)
	}
	return out, rows.Err()
}

func (s *Store) FindQuestion(ctx context.Context, id string) (domain.Question, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	q, err := scanQuestion(s.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (s *Store) FindQuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	if _, err := uuid.Parse(quizID); err != nil {
		return nil, nil
	}
	return queryQuestions(ctx, s.pool,
		`SELECT `+questionColumns+` FROM questions WHERE quiz_id = $1 ORDER BY position`, quizID)
}
