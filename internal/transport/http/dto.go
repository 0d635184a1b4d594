package http

import (
	"time"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/domain"
	"cyberhoot-service/internal/prompt"
)

type generationParams struct {
	Topic        string `json:"topic" binding:"required"`
	QuestionType string `json:"questionType" binding:"required"`
	Difficulty   int    `json:"difficulty"`
	Language     string `json:"language"`
	Count        int    `json:"count"`
}

func (p generationParams) params() prompt.Params {
	return prompt.Params{
		Difficulty: p.Difficulty,
		Type:       domain.QuestionType(p.QuestionType),
		Language:   p.Language,
		Topic:      p.Topic,
		Count:      p.Count,
	}
}

type createSessionRequest struct {
	Username string `json:"username"`
	generationParams
}

type generateRequest struct {
	Username string `json:"username"`
	generationParams
}

type playerRequest struct {
	Username string `json:"username"`
}

type submitAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Username   string `json:"username"`
	Answer     string `json:"answer"`
	Score      *int   `json:"score"`
}

// questionView is what players see of a question; the canonical answer never leaves the server.
type questionView struct {
	ID          string              `json:"id"`
	Type        domain.QuestionType `json:"type"`
	Text        string              `json:"text"`
	Options     []string            `json:"options,omitempty"`
	Language    string              `json:"language"`
	Topic       string              `json:"topic"`
	Difficulty  int                 `json:"difficulty"`
	SolvingTime int                 `json:"solvingTime"`
}

func viewQuestions(questions []domain.Question) []questionView {
	out := make([]questionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionView{
			ID:          q.ID,
			Type:        q.Type,
			Text:        q.Text,
			Options:     q.Options(),
			Language:    q.Language,
			Topic:       q.Topic,
			Difficulty:  q.Difficulty,
			SolvingTime: q.SolvingTime,
		})
	}
	return out
}

type playerView struct {
	ID             string              `json:"id"`
	UserID         string              `json:"userId"`
	Name           string              `json:"name"`
	Avatar         string              `json:"avatar"`
	Color          string              `json:"color"`
	Score          int                 `json:"score"`
	Status         domain.PlayerStatus `json:"status"`
	IsHost         bool                `json:"isHost"`
	CorrectAnswers int                 `json:"correctAnswers"`
	JoinedAt       time.Time           `json:"joinedAt"`
}

func viewPlayer(p domain.Player) playerView {
	return playerView{
		ID:             p.ID,
		UserID:         p.UserID,
		Name:           p.Name,
		Avatar:         p.Avatar,
		Color:          p.Color,
		Score:          p.Score,
		Status:         p.Status,
		IsHost:         p.IsHost,
		CorrectAnswers: p.CorrectAnswers,
		JoinedAt:       p.JoinedAt,
	}
}

type sessionView struct {
	ID           string               `json:"id"`
	Code         string               `json:"code"`
	Status       domain.SessionStatus `json:"status"`
	Host         string               `json:"host"`
	Topic        string               `json:"topic"`
	QuestionType domain.QuestionType  `json:"questionType"`
	Difficulty   int                  `json:"difficulty"`
	Language     string               `json:"language"`
	Count        int                  `json:"count"`
	StartTime    *time.Time           `json:"startTime,omitempty"`
	EndTime      *time.Time           `json:"endTime,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
	Players      []playerView         `json:"players"`
	Questions    []questionView       `json:"questions"`
}

func viewSession(s domain.GameSession) sessionView {
	players := make([]playerView, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, viewPlayer(p))
	}
	return sessionView{
		ID:           s.ID,
		Code:         s.Code,
		Status:       s.Status,
		Host:         s.Host.Username,
		Topic:        s.Topic,
		QuestionType: s.QuestionType,
		Difficulty:   s.Difficulty,
		Language:     s.Language,
		Count:        s.Count,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		CreatedAt:    s.CreatedAt,
		Players:      players,
		Questions:    viewQuestions(s.Questions),
	}
}

type joinResponse struct {
	Session sessionView `json:"session"`
	Player  playerView  `json:"player"`
	Roster  app.Roster  `json:"roster"`
}

type generateResponse struct {
	Quiz      domain.Quiz    `json:"quiz"`
	Questions []questionView `json:"questions"`
}

type answerResponse struct {
	ID          string      `json:"id"`
	QuestionID  string      `json:"questionId"`
	Correct     bool        `json:"correct"`
	Score       int         `json:"score"`
	Explanation string      `json:"explanation,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	Roster      *app.Roster `json:"roster,omitempty"`
	TotalScore  *int        `json:"totalScore,omitempty"`
}

func viewAnswer(res app.SubmitResult) answerResponse {
	out := answerResponse{
		ID:          res.Answer.ID,
		QuestionID:  res.Answer.QuestionID,
		Correct:     res.Answer.Correct,
		Score:       res.Answer.Score,
		Explanation: res.Answer.Explanation,
		CreatedAt:   res.Answer.CreatedAt,
		Roster:      res.Roster,
	}
	if res.Player != nil {
		total := res.Player.Score
		out.TotalScore = &total
	}
	return out
}

type explanationResponse struct {
	QuestionID  string `json:"questionId"`
	Explanation string `json:"explanation"`
}
