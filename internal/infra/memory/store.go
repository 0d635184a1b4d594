package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"cyberhoot-service/internal/domain"
	"github.com/google/uuid"
)

// Store is an in-memory implementation of every app persistence port.
// A single mutex makes each call atomic, which is what the multi-row writes need.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	// users are keyed by username; liveCodes maps the code of every
	// unfinished session to its id; quizOrder keeps generation order.
	users     map[string]domain.User
	sessions  map[string]*domain.GameSession
	liveCodes map[string]string
	questions map[string]domain.Question
	quizzes   map[string]domain.Quiz
	quizOrder map[string][]string
	answers   map[string][]domain.QuestionAnswer
}

func NewStore(usernames ...string) *Store {
	s := &Store{
		clock:     time.Now,
		users:     make(map[string]domain.User),
		sessions:  make(map[string]*domain.GameSession),
		liveCodes: make(map[string]string),
		questions: make(map[string]domain.Question),
		quizzes:   make(map[string]domain.Quiz),
		quizOrder: make(map[string][]string),
		answers:   make(map[string][]domain.QuestionAnswer),
	}
	for _, name := range usernames {
		_, _ = s.AddUser(context.Background(), name)
	}
	return s
}

// AddUser registers username; registering an existing name returns the existing user.
func (s *Store) AddUser(_ context.Context, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, domain.Validationf("username is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	u := domain.User{ID: uuid.NewString(), Username: username, CreatedAt: s.clock()}
	s.users[username] = u
	return u, nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.TrimSpace(username)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) CreateSession(_ context.Context, session domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.liveCodes[session.Code]; taken {
		return domain.ErrCodeTaken
	}
	if _, dup := s.sessions[session.ID]; dup {
		return &domain.Error{Kind: domain.KindConflict, Msg: "session already exists"}
	}
	stored := copySession(session)
	for _, q := range stored.Questions {
		s.questions[q.ID] = q
	}
	s.sessions[session.ID] = &stored
	if session.Status != domain.SessionFinished {
		s.liveCodes[session.Code] = session.ID
	}
	return nil
}

// FindSessionByCode prefers the live session holding code, then the latest finished one.
func (s *Store) FindSessionByCode(_ context.Context, code string) (domain.GameSession, error) {
	code = domain.NormalizeCode(code)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.liveCodes[code]; ok {
		return copySession(*s.sessions[id]), nil
	}
	var latest *domain.GameSession
	for _, sess := range s.sessions {
		if sess.Code == code && (latest == nil || sess.CreatedAt.After(latest.CreatedAt)) {
			latest = sess
		}
	}
	if latest == nil {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return copySession(*latest), nil
}

func (s *Store) FindSessionByID(_ context.Context, id string) (domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.GameSession{}, domain.ErrSessionNotFound
	}
	return copySession(*sess), nil
}

func (s *Store) AddPlayer(_ context.Context, sessionID string, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if _, seated := sess.PlayerByUser(player.UserID); seated {
		return nil
	}
	player.SessionID = sessionID
	sess.Players = append(sess.Players, player)
	return nil
}

func (s *Store) UpdatePlayer(_ context.Context, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[player.SessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for i := range sess.Players {
		if sess.Players[i].ID == player.ID {
			sess.Players[i] = player
			return nil
		}
	}
	return &domain.Error{Kind: domain.KindNotFound, Msg: "player not found"}
}

func (s *Store) UpdateSessionStatus(_ context.Context, sessionID string, status domain.SessionStatus, start, end *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Status = status
	sess.StartTime = copyTime(start)
	sess.EndTime = copyTime(end)
	if status == domain.SessionFinished && s.liveCodes[sess.Code] == sess.ID {
		delete(s.liveCodes, sess.Code)
	}
	return nil
}

// DeleteSession removes the session together with its players, questions and their answers.
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	for _, q := range sess.Questions {
		delete(s.questions, q.ID)
		delete(s.answers, q.ID)
	}
	if s.liveCodes[sess.Code] == sessionID {
		delete(s.liveCodes, sess.Code)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) FindQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) FindQuestionsByQuiz(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.quizOrder[quizID]))
	for _, id := range s.quizOrder[quizID] {
		if q, ok := s.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.quizzes[quiz.ID]; dup {
		return &domain.Error{Kind: domain.KindConflict, Msg: "quiz already exists"}
	}
	for _, q := range questions {
		if _, dup := s.questions[q.ID]; dup {
			return &domain.Error{Kind: domain.KindConflict, Msg: "question already exists"}
		}
	}
	s.quizzes[quiz.ID] = quiz
	for _, q := range questions {
		q.QuizID = quiz.ID
		s.questions[q.ID] = q
		s.quizOrder[quiz.ID] = append(s.quizOrder[quiz.ID], q.ID)
	}
	return nil
}

func (s *Store) FindQuizzesByUser(_ context.Context, userID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Quiz
	for _, q := range s.quizzes {
		if q.UserID == userID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveAnswer(_ context.Context, answer domain.QuestionAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[answer.QuestionID]; !ok {
		return domain.ErrQuestionNotFound
	}
	s.answers[answer.QuestionID] = append(s.answers[answer.QuestionID], answer)
	return nil
}

func (s *Store) FindAnswersByQuestion(_ context.Context, questionID string) ([]domain.QuestionAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuestionAnswer(nil), s.answers[questionID]...), nil
}

func copySession(in domain.GameSession) domain.GameSession {
	out := in
	out.Players = append([]domain.Player(nil), in.Players...)
	out.Questions = append([]domain.Question(nil), in.Questions...)
	out.StartTime = copyTime(in.StartTime)
	out.EndTime = copyTime(in.EndTime)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
