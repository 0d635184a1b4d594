package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WSHandler struct {
	sessions *app.SessionService
	answers  *app.AnswerEvaluator
	upgrader websocket.Upgrader
}

func NewWSHandler(sessions *app.SessionService, answers *app.AnswerEvaluator) *WSHandler {
	return &WSHandler{
		sessions: sessions,
		answers:  answers,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type answerResult struct {
	QuestionID  string `json:"questionId"`
	Correct     bool   `json:"correct"`
	Score       int    `json:"score"`
	Explanation string `json:"explanation,omitempty"`
	TotalScore  int    `json:"totalScore"`
}

type joinedPayload struct {
	Session sessionView `json:"session"`
	Player  playerView  `json:"player"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorOf(err)}
}

// Handle seats the caller in the session named by ?code= and streams its roster.
// Players send "answer" messages; the host may also send "start" and "finish".
func (h *WSHandler) Handle(c *gin.Context) {
	code := c.Query("code")
	username := callerName(c, c.Query("username"))
	if code == "" || username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: domain.KindValidation, Message: "missing code or username"})
		return
	}
	h.serve(c.Writer, c.Request, code, username)
}

func (h *WSHandler) serve(w http.ResponseWriter, r *http.Request, code, username string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	joined, err := h.sessions.Join(ctx, code, username)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	updates, cancel, err := h.sessions.Subscribe(ctx, code)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.sessions.Leave(joined.Session.ID)
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer; gorilla connections allow one concurrent writer
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "roster", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "joined", Payload: joinedPayload{
		Session: viewSession(joined.Session),
		Player:  viewPlayer(joined.Player),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		send <- h.dispatch(ctx, joined, inbound)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch handles one inbound message. Roster changes reach the client through
// the subscription, so replies carry only the caller's own result.
func (h *WSHandler) dispatch(ctx context.Context, joined app.JoinResult, in inboundMessage) outboundMessage {
	session := joined.Session
	switch in.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(in.Payload, &payload); err != nil {
			return errorMessage(domain.Validationf("invalid answer payload"))
		}
		if !session.HasQuestion(payload.QuestionID) {
			return errorMessage(domain.ErrQuestionNotFound)
		}
		res, err := h.answers.Submit(ctx, app.SubmitRequest{
			QuestionID: payload.QuestionID,
			Username:   joined.Player.Name,
			Answer:     payload.Answer,
		})
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage{Type: "answerResult", Payload: answerResult{
			QuestionID:  payload.QuestionID,
			Correct:     res.Answer.Correct,
			Score:       res.Answer.Score,
			Explanation: res.Answer.Explanation,
			TotalScore:  totalScore(res),
		}}
	case "start", "finish":
		step := h.sessions.Start
		if in.Type == "finish" {
			step = h.sessions.Finish
		}
		updated, err := step(ctx, session.Code, joined.Player.Name)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage{Type: "status", Payload: viewSession(updated)}
	}
	return errorMessage(domain.Validationf("unsupported message type %q", in.Type))
}

// totalScore is the caller's stored score after the answer, including answers
// that earned no credit because the session had finished.
func totalScore(res app.SubmitResult) int {
	if res.Player == nil {
		return 0
	}
	return res.Player.Score
}
