package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cyberhoot-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
)

var errPlayerNotFound = &domain.Error{Kind: domain.KindNotFound, Msg: "player not found"}

// CreateSession stores the session, its roster and its questions in one transaction.
// The partial unique index on live codes turns a lost race into domain.ErrCodeTaken.
func (s *Store) CreateSession(ctx context.Context, session domain.GameSession) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO game_sessions (id, code, status, host_id, topic, question_type, difficulty,
			   language, question_count, start_time, end_time, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			session.ID, session.Code, string(session.Status), session.Host.ID, session.Topic,
			string(session.QuestionType), session.Difficulty, session.Language, session.Count,
			session.StartTime, session.EndTime, session.CreatedAt)
		if err != nil {
			switch code, constraint := pgCode(err); {
			case code == uniqueViolation && constraint == liveCodeConstraint:
				return domain.ErrCodeTaken
			case code == uniqueViolation:
				return &domain.Error{Kind: domain.KindConflict, Msg: "session already exists"}
			case code == foreignKeyViolation:
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("insert session: %w", err)
		}
		for _, p := range session.Players {
			if err := insertPlayer(ctx, tx, session.ID, p); err != nil {
				return err
			}
		}
		return insertQuestions(ctx, tx, session.Questions, "", session.ID)
	})
}

func insertPlayer(ctx context.Context, q querier, sessionID string, p domain.Player) error {
	_, err := q.Exec(ctx,
		`INSERT INTO players (id, session_id, user_id, name, avatar, color, score, status, is_host,
		   correct_answers, current_answer, answer_time, joined_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (session_id, user_id) DO NOTHING`,
		p.ID, sessionID, p.UserID, p.Name, p.Avatar, p.Color, p.Score, string(p.Status), p.IsHost,
		p.CorrectAnswers, p.CurrentAnswer, p.AnswerTime, p.JoinedAt)
	if err != nil {
		if code, _ := pgCode(err); code == foreignKeyViolation {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// FindSessionByCode prefers the live session holding code, then the latest finished one.
func (s *Store) FindSessionByCode(ctx context.Context, code string) (domain.GameSession, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text FROM game_sessions WHERE code = $1
		 ORDER BY (status = 'FINISHED'), created_at DESC LIMIT 1`,
		domain.NormalizeCode(code)).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("find session: %w", err)
	}
	return loadSession(ctx, s.pool, id)
}

func (s *Store) FindSessionByID(ctx context.Context, id string) (domain.GameSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return loadSession(ctx, s.pool, id)
}

func loadSession(ctx context.Context, q querier, id string) (domain.GameSession, error) {
	var (
		sess         domain.GameSession
		status       string
		questionType string
	)
	err := q.QueryRow(ctx,
		`SELECT s.id::text, s.code, s.status, s.topic, s.question_type, s.difficulty, s.language,
		   s.question_count, s.start_time, s.end_time, s.created_at,
		   u.id::text, u.username, u.created_at
		 FROM game_sessions s JOIN app_users u ON u.id = s.host_id
		 WHERE s.id = $1`, id).
		Scan(&sess.ID, &sess.Code, &status, &sess.Topic, &questionType, &sess.Difficulty,
			&sess.Language, &sess.Count, &sess.StartTime, &sess.EndTime, &sess.CreatedAt,
			&sess.Host.ID, &sess.Host.Username, &sess.Host.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.GameSession{}, fmt.Errorf("load session: %w", err)
	}
	sess.Status = domain.SessionStatus(status)
	sess.QuestionType = domain.QuestionType(questionType)

	if sess.Players, err = loadPlayers(ctx, q, id); err != nil {
		return domain.GameSession{}, err
	}
	sess.Questions, err = queryQuestions(ctx, q,
		`SELECT `+questionColumns+` FROM questions WHERE session_id = $1 ORDER BY position`, id)
	if err != nil {
		return domain.GameSession{}, err
	}
	return sess, nil
}

func loadPlayers(ctx context.Context, q querier, sessionID string) ([]domain.Player, error) {
	rows, err := q.Query(ctx,
		`SELECT id::text, session_id::text, user_id::text, name, avatar, color, score, status,
		   is_host, correct_answers, current_answer, answer_time, joined_at
		 FROM players WHERE session_id = $1 ORDER BY joined_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()
	var players []domain.Player
	for rows.Next() {
		var (
			p      domain.Player
			status string
		)
		if err := rows.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Name, &p.Avatar, &p.Color, &p.Score,
			&status, &p.IsHost, &p.CorrectAnswers, &p.CurrentAnswer, &p.AnswerTime, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.Status = domain.PlayerStatus(status)
		players = append(players, p)
	}
	return players, rows.Err()
}

// AddPlayer seats player; a user already on the roster is left untouched.
func (s *Store) AddPlayer(ctx context.Context, sessionID string, player domain.Player) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.ErrSessionNotFound
	}
	return insertPlayer(ctx, s.pool, sessionID, player)
}

func (s *Store) UpdatePlayer(ctx context.Context, p domain.Player) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE players SET score = $2, status = $3, correct_answers = $4, current_answer = $5,
		   answer_time = $6
		 WHERE id = $1`,
		p.ID, p.Score, string(p.Status), p.CorrectAnswers, p.CurrentAnswer, p.AnswerTime)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errPlayerNotFound
	}
	return nil
}

func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus, start, end *time.Time) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.ErrSessionNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_sessions SET status = $2, start_time = $3, end_time = $4 WHERE id = $1`,
		sessionID, string(status), start, end)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes the session; players, questions and answers go with it by cascade.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.ErrSessionNotFound
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
