package domain

import (
	"strings"
	"time"
)

// SessionStatus moves strictly forward: WAITING -> PLAYING -> FINISHED.
type SessionStatus string

const (
	SessionWaiting  SessionStatus = "WAITING"
	SessionPlaying  SessionStatus = "PLAYING"
	SessionFinished SessionStatus = "FINISHED"
)

func (s SessionStatus) rank() int {
	switch s {
	case SessionWaiting:
		return 0
	case SessionPlaying:
		return 1
	case SessionFinished:
		return 2
	}
	return -1
}

// CanAdvanceTo reports whether next is a forward transition from s.
func (s SessionStatus) CanAdvanceTo(next SessionStatus) bool {
	return s.rank() >= 0 && next.rank() == s.rank()+1
}

type PlayerStatus string

const (
	PlayerWaiting  PlayerStatus = "WAITING"
	PlayerReady    PlayerStatus = "READY"
	PlayerPlaying  PlayerStatus = "PLAYING"
	PlayerFinished PlayerStatus = "FINISHED"
)

// User is an identity resolved by username. Credentials never reach the core.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// Player is a user's seat in one game session.
type Player struct {
	ID             string       `json:"id"`
	SessionID      string       `json:"sessionId"`
	UserID         string       `json:"userId"`
	Name           string       `json:"name"`
	Avatar         string       `json:"avatar"`
	Color          string       `json:"color"`
	Score          int          `json:"score"`
	Status         PlayerStatus `json:"status"`
	IsHost         bool         `json:"isHost"`
	CorrectAnswers int          `json:"correctAnswers"`
	CurrentAnswer  string       `json:"currentAnswer,omitempty"`
	AnswerTime     *time.Time   `json:"answerTime,omitempty"`
	JoinedAt       time.Time    `json:"joinedAt"`
}

// GameSession is a live multiplayer quiz identified by a short code.
type GameSession struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	Status       SessionStatus `json:"status"`
	Host         User          `json:"host"`
	Players      []Player      `json:"players"`
	Topic        string        `json:"topic"`
	QuestionType QuestionType  `json:"questionType"`
	Difficulty   int           `json:"difficulty"`
	Language     string        `json:"language"`
	Count        int           `json:"count"`
	StartTime    *time.Time    `json:"startTime,omitempty"`
	EndTime      *time.Time    `json:"endTime,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	Questions    []Question    `json:"questions"`
}

// PlayerByUser returns the roster entry of userID.
func (s GameSession) PlayerByUser(userID string) (Player, bool) {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// HasQuestion reports whether questionID belongs to the session.
func (s GameSession) HasQuestion(questionID string) bool {
	for _, q := range s.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

// QuestionAnswer is an append-only record of one graded submission.
type QuestionAnswer struct {
	ID          string    `json:"id"`
	QuestionID  string    `json:"questionId"`
	Username    string    `json:"username,omitempty"`
	UserAnswer  string    `json:"userAnswer"`
	Correct     bool      `json:"correct"`
	Score       int       `json:"score"`
	Explanation string    `json:"explanation,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Quiz groups generated questions for a user outside of live play.
type Quiz struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Language    string       `json:"language"`
	Type        QuestionType `json:"type"`
	TimeLimit   int          `json:"timeLimit"`
	Topic       string       `json:"topic"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// NormalizeCode canonicalizes a human-entered session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
