package app

import (
	"errors"
	"sort"
	"sync"
	"time"

	"cyberhoot-service/internal/domain"
)

// Roster is the broadcast view of a session: status plus players, ranked.
type Roster struct {
	Code      string               `json:"code"`
	Status    domain.SessionStatus `json:"status"`
	Players   []RosterEntry        `json:"players"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// RosterEntry never carries answers, only what other players may see.
type RosterEntry struct {
	UserID         string              `json:"userId"`
	Name           string              `json:"name"`
	Avatar         string              `json:"avatar"`
	Color          string              `json:"color"`
	Score          int                 `json:"score"`
	CorrectAnswers int                 `json:"correctAnswers"`
	Status         domain.PlayerStatus `json:"status"`
	IsHost         bool                `json:"isHost"`
}

// errUnchanged lets a mutation bail out without publishing a roster.
var errUnchanged = errors.New("roster unchanged")

// Lobby serializes every roster mutation of one session and fans roster
// snapshots out to subscribers. It lives in process memory only and is keyed
// by session id, since codes are reused once a session finishes.
type Lobby struct {
	sessionID   string
	createdAt   time.Time
	now         func() time.Time
	mu          sync.Mutex
	last        Roster
	subscribers map[chan Roster]struct{}
}

// NewLobby is exported for infrastructure layers that own lobby lifetimes.
func NewLobby(sessionID string) *Lobby {
	return NewLobbyWithClock(sessionID, time.Now)
}

// NewLobbyWithClock is test-only for deterministic timestamps.
func NewLobbyWithClock(sessionID string, now func() time.Time) *Lobby {
	return &Lobby{
		sessionID:   sessionID,
		createdAt:   now(),
		now:         now,
		subscribers: make(map[chan Roster]struct{}),
	}
}

// SessionID returns the session this lobby serializes.
func (l *Lobby) SessionID() string { return l.sessionID }

// mutate runs fn with the lobby lock held. fn returns the session as it
// stands after its change; the resulting roster is published to subscribers.
// Returning errUnchanged skips publishing and yields the last roster.
func (l *Lobby) mutate(fn func() (domain.GameSession, error)) (Roster, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	session, err := fn()
	if errors.Is(err, errUnchanged) {
		return l.last, nil
	}
	if err != nil {
		return Roster{}, err
	}
	l.last = rosterOf(session, l.now())
	l.broadcastLocked()
	return l.last, nil
}

// subscribe registers a roster channel. load, when set, refreshes the
// snapshot from the store under the lock so the first value is current.
func (l *Lobby) subscribe(load func() (domain.GameSession, error)) (<-chan Roster, func(), error) {
	ch := make(chan Roster, 8)

	l.mu.Lock()
	if load != nil {
		session, err := load()
		if err != nil {
			l.mu.Unlock()
			return nil, nil, err
		}
		l.last = rosterOf(session, l.now())
	}
	l.subscribers[ch] = struct{}{}
	initial := l.last
	l.mu.Unlock()

	ch <- initial

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel, nil
}

// IsIdle reports whether nobody is listening to the lobby.
func (l *Lobby) IsIdle() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subscribers) == 0
}

func (l *Lobby) broadcastLocked() {
	for ch := range l.subscribers {
		select {
		case ch <- l.last:
		default:
			// slow subscriber: drop its oldest snapshot so broadcast never blocks
			select {
			case <-ch:
			default:
			}
			ch <- l.last
		}
	}
}

// rosterOf ranks players by score, then by who answered earliest, then by join order.
// Players who have not answered rank after those who have.
func rosterOf(session domain.GameSession, now time.Time) Roster {
	players := append([]domain.Player(nil), session.Players...)
	sort.SliceStable(players, func(i, j int) bool {
		pi, pj := players[i], players[j]
		if pi.Score != pj.Score {
			return pi.Score > pj.Score
		}
		if (pi.AnswerTime == nil) != (pj.AnswerTime == nil) {
			return pi.AnswerTime != nil
		}
		if pi.AnswerTime != nil && !pi.AnswerTime.Equal(*pj.AnswerTime) {
			return pi.AnswerTime.Before(*pj.AnswerTime)
		}
		return pi.JoinedAt.Before(pj.JoinedAt)
	})

	entries := make([]RosterEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, RosterEntry{
			UserID:         p.UserID,
			Name:           p.Name,
			Avatar:         p.Avatar,
			Color:          p.Color,
			Score:          p.Score,
			CorrectAnswers: p.CorrectAnswers,
			Status:         p.Status,
			IsHost:         p.IsHost,
		})
	}
	return Roster{
		Code:      session.Code,
		Status:    session.Status,
		Players:   entries,
		UpdatedAt: now,
	}
}
