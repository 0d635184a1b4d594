package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/prompt"
	"github.com/google/uuid"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	hostAvatar = "👤"
	hostColor  = "#9fef00"
)

var (
	playerAvatars = []string{"🦊", "🐯", "🐼", "🦁", "🐺", "🦝", "🐱", "🐹", "🐰", "🐻"}
	playerColors  = []string{
		"#FF5733", "#33FF57", "#3357FF", "#FF33A8", "#33FFF5",
		"#F5FF33", "#A833FF", "#FF8333", "#8CFF33", "#33B5FF",
	}
)

// SessionConfig tunes code allocation and roster size.
type SessionConfig struct {
	CodeLength      int
	MaxCodeAttempts int
	// MaxPlayers caps the roster including the host; zero means unlimited.
	MaxPlayers int
}

// DefaultSessionConfig matches the six-character codes and six-seat lobbies players know.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{CodeLength: 6, MaxCodeAttempts: 10, MaxPlayers: 6}
}

// SessionDeps groups the lifecycle collaborators.
type SessionDeps struct {
	Pipeline  *QuestionPipeline
	Store     Store
	Codes     CodeRegistry
	Lobbies   LobbyStore
	Publisher EventPublisher
	Queue     string
	Config    SessionConfig
}

// SessionService owns the session lifecycle: create, join, start, finish.
type SessionService struct {
	pipeline *QuestionPipeline
	store    Store
	codes    CodeRegistry
	lobbies  LobbyStore
	events   events
	cfg      SessionConfig
	now      func() time.Time
	newCode  func(n int) (string, error)
}

func NewSessionService(deps SessionDeps) *SessionService {
	cfg := deps.Config
	def := DefaultSessionConfig()
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = def.CodeLength
	}
	if cfg.MaxCodeAttempts <= 0 {
		cfg.MaxCodeAttempts = def.MaxCodeAttempts
	}
	return &SessionService{
		pipeline: deps.Pipeline,
		store:    deps.Store,
		codes:    deps.Codes,
		lobbies:  deps.Lobbies,
		events:   newEvents(deps.Publisher, deps.Queue),
		cfg:      cfg,
		now:      time.Now,
		newCode:  randomCode,
	}
}

// CreateSessionRequest asks for a new session hosted by Username.
type CreateSessionRequest struct {
	Username string
	Params   prompt.Params
}

// Create generates the questions, allocates a unique code and stores the
// session with its host and questions in one unit. Generation runs before any
// code is held, so a failed generation leaves nothing behind.
func (s *SessionService) Create(ctx context.Context, req CreateSessionRequest) (domain.GameSession, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return domain.GameSession{}, domain.Validationf("username is required")
	}
	params, err := req.Params.Validate()
	if err != nil {
		return domain.GameSession{}, err
	}
	host, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return domain.GameSession{}, err
	}

	questions, err := s.pipeline.Draft(ctx, params)
	if err != nil {
		return domain.GameSession{}, err
	}

	for attempt := 1; attempt <= s.cfg.MaxCodeAttempts; attempt++ {
		code, err := s.newCode(s.cfg.CodeLength)
		if err != nil {
			return domain.GameSession{}, fmt.Errorf("generate session code: %w", err)
		}
		reserved, err := s.codes.Reserve(ctx, code)
		if err != nil {
			return domain.GameSession{}, fmt.Errorf("reserve session code: %w", err)
		}
		if !reserved {
			continue
		}

		session := s.newSession(code, host, params, questions)
		err = s.store.CreateSession(ctx, session)
		if err == nil {
			s.lobbies.GetOrCreate(session.ID)
			s.events.publish(ctx, Event{
				Type:        EventSessionCreated,
				SessionCode: code,
				SessionID:   session.ID,
				Username:    host.Username,
				OccurredAt:  session.CreatedAt,
			})
			return session, nil
		}
		s.release(ctx, code)
		if !errors.Is(err, domain.ErrCodeTaken) {
			return domain.GameSession{}, fmt.Errorf("store session: %w", err)
		}
	}
	return domain.GameSession{}, &domain.Error{
		Kind: domain.KindConflict,
		Msg:  fmt.Sprintf("no free session code after %d attempts", s.cfg.MaxCodeAttempts),
	}
}

func (s *SessionService) newSession(code string, host domain.User, params prompt.Params, drafted []domain.Question) domain.GameSession {
	now := s.now()
	id := uuid.NewString()
	questions := make([]domain.Question, len(drafted))
	for i, q := range drafted {
		q.SessionID = id
		questions[i] = q
	}
	topic := params.Topic
	if len(questions) > 0 {
		topic = questions[0].Topic
	}
	return domain.GameSession{
		ID:     id,
		Code:   code,
		Status: domain.SessionWaiting,
		Host:   host,
		Players: []domain.Player{{
			ID:        uuid.NewString(),
			SessionID: id,
			UserID:    host.ID,
			Name:      host.Username,
			Avatar:    hostAvatar,
			Color:     hostColor,
			Status:    domain.PlayerWaiting,
			IsHost:    true,
			JoinedAt:  now,
		}},
		Topic:        topic,
		QuestionType: params.Type,
		Difficulty:   params.Difficulty,
		Language:     params.Language,
		Count:        params.Count,
		CreatedAt:    now,
		Questions:    questions,
	}
}

// JoinResult is the session after the join and the caller's seat in it.
type JoinResult struct {
	Session domain.GameSession
	Player  domain.Player
	Roster  Roster
}

// Join seats username in the session. Joining twice returns the existing seat.
func (s *SessionService) Join(ctx context.Context, code, username string) (JoinResult, error) {
	code = domain.NormalizeCode(code)
	username = strings.TrimSpace(username)
	if code == "" {
		return JoinResult{}, domain.Validationf("session code is required")
	}
	if username == "" {
		return JoinResult{}, domain.Validationf("username is required")
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return JoinResult{}, err
	}
	session, err := s.store.FindSessionByCode(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}

	var (
		result JoinResult
		joined bool
	)
	lobby := s.lobbies.GetOrCreate(session.ID)
	roster, err := lobby.mutate(func() (domain.GameSession, error) {
		current, err := s.store.FindSessionByID(ctx, session.ID)
		if err != nil {
			return domain.GameSession{}, err
		}
		if p, ok := current.PlayerByUser(user.ID); ok {
			result.Session, result.Player = current, p
			return current, nil
		}
		if current.Status != domain.SessionWaiting {
			return domain.GameSession{}, domain.ErrSessionClosed
		}
		if s.cfg.MaxPlayers > 0 && len(current.Players) >= s.cfg.MaxPlayers {
			return domain.GameSession{}, domain.ErrSessionFull
		}

		seat := len(current.Players)
		player := domain.Player{
			ID:        uuid.NewString(),
			SessionID: current.ID,
			UserID:    user.ID,
			Name:      user.Username,
			Avatar:    playerAvatars[(seat-1)%len(playerAvatars)],
			Color:     playerColors[seat%len(playerColors)],
			Status:    domain.PlayerWaiting,
			JoinedAt:  s.now(),
		}
		if err := s.store.AddPlayer(ctx, current.ID, player); err != nil {
			return domain.GameSession{}, fmt.Errorf("add player: %w", err)
		}
		current.Players = append(current.Players, player)
		result.Session, result.Player = current, player
		joined = true
		return current, nil
	})
	if err != nil {
		return JoinResult{}, err
	}
	result.Roster = roster

	if joined {
		s.events.publish(ctx, Event{
			Type:        EventSessionJoined,
			SessionCode: session.Code,
			SessionID:   session.ID,
			Username:    user.Username,
		})
	}
	return result, nil
}

// Start moves a waiting session to PLAYING. Only the host may start it.
func (s *SessionService) Start(ctx context.Context, code, username string) (domain.GameSession, error) {
	return s.advance(ctx, code, username, domain.SessionPlaying)
}

// Finish ends a playing session and frees its code. Only the host may finish it.
func (s *SessionService) Finish(ctx context.Context, code, username string) (domain.GameSession, error) {
	return s.advance(ctx, code, username, domain.SessionFinished)
}

func (s *SessionService) advance(ctx context.Context, code, username string, next domain.SessionStatus) (domain.GameSession, error) {
	code = domain.NormalizeCode(code)
	username = strings.TrimSpace(username)
	if code == "" || username == "" {
		return domain.GameSession{}, domain.Validationf("session code and username are required")
	}
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return domain.GameSession{}, err
	}
	session, err := s.store.FindSessionByCode(ctx, code)
	if err != nil {
		return domain.GameSession{}, err
	}

	var updated domain.GameSession
	lobby := s.lobbies.GetOrCreate(session.ID)
	_, err = lobby.mutate(func() (domain.GameSession, error) {
		current, err := s.store.FindSessionByID(ctx, session.ID)
		if err != nil {
			return domain.GameSession{}, err
		}
		if current.Host.ID != user.ID {
			return domain.GameSession{}, domain.ErrNotHost
		}
		if !current.Status.CanAdvanceTo(next) {
			return domain.GameSession{}, domain.Validationf("session %s cannot move from %s to %s", current.Code, current.Status, next)
		}

		now := s.now()
		playerStatus := domain.PlayerPlaying
		if next == domain.SessionPlaying {
			current.StartTime = &now
		} else {
			current.EndTime = &now
			playerStatus = domain.PlayerFinished
		}
		if err := s.store.UpdateSessionStatus(ctx, current.ID, next, current.StartTime, current.EndTime); err != nil {
			return domain.GameSession{}, fmt.Errorf("update session status: %w", err)
		}
		current.Status = next
		for i := range current.Players {
			current.Players[i].Status = playerStatus
			if err := s.store.UpdatePlayer(ctx, current.Players[i]); err != nil {
				return domain.GameSession{}, fmt.Errorf("update player: %w", err)
			}
		}
		updated = current
		return current, nil
	})
	if err != nil {
		return domain.GameSession{}, err
	}

	eventType := EventSessionStarted
	if next == domain.SessionFinished {
		eventType = EventSessionFinished
		s.release(ctx, updated.Code)
		s.lobbies.DeleteIfIdle(updated.ID)
	}
	s.events.publish(ctx, Event{
		Type:        eventType,
		SessionCode: updated.Code,
		SessionID:   updated.ID,
		Username:    user.Username,
	})
	return updated, nil
}

// Get returns the session behind code.
func (s *SessionService) Get(ctx context.Context, code string) (domain.GameSession, error) {
	code = domain.NormalizeCode(code)
	if code == "" {
		return domain.GameSession{}, domain.Validationf("session code is required")
	}
	return s.store.FindSessionByCode(ctx, code)
}

// Questions returns the questions of the session behind code, in generation order.
func (s *SessionService) Questions(ctx context.Context, code string) ([]domain.Question, error) {
	session, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return session.Questions, nil
}

// Subscribe streams roster snapshots of a session. The first value is current.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(ctx context.Context, code string) (<-chan Roster, func(), error) {
	session, err := s.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	lobby := s.lobbies.GetOrCreate(session.ID)
	return lobby.subscribe(func() (domain.GameSession, error) {
		return s.store.FindSessionByID(ctx, session.ID)
	})
}

// Leave drops the session's lobby once nobody listens any more. Seats are kept.
func (s *SessionService) Leave(sessionID string) {
	if lobby, ok := s.lobbies.Get(sessionID); ok && lobby.IsIdle() {
		s.lobbies.DeleteIfIdle(sessionID)
	}
}

func (s *SessionService) release(ctx context.Context, code string) {
	if err := s.codes.Release(ctx, code); err != nil {
		log.Printf("release session code %s: %v", code, err)
	}
}

// randomCode draws n characters uniformly from [0-9A-Z].
func randomCode(n int) (string, error) {
	base := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[idx.Int64()]
	}
	return string(b), nil
}
