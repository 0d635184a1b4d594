package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"cyberhoot-service/internal/app"
	"cyberhoot-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Sessions     *app.SessionService
	Questions    *app.QuestionPipeline
	Answers      *app.AnswerEvaluator
	Explanations *app.ExplanationService
	History      *app.HistoryService
}

// Handler serves the REST surface.
type Handler struct {
	sessions     *app.SessionService
	questions    *app.QuestionPipeline
	answers      *app.AnswerEvaluator
	explanations *app.ExplanationService
	history      *app.HistoryService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		sessions:     s.Sessions,
		questions:    s.Questions,
		answers:      s.Answers,
		explanations: s.Explanations,
		history:      s.History,
	}
}

// bindOptional decodes the JSON body when there is one.
func bindOptional(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := h.sessions.Create(c.Request.Context(), app.CreateSessionRequest{
		Username: callerName(c, req.Username),
		Params:   req.params(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, viewSession(session))
}

func (h *Handler) getSession(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSession(session))
}

func (h *Handler) sessionQuestions(c *gin.Context) {
	questions, err := h.sessions.Questions(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewQuestions(questions))
}

func (h *Handler) joinSession(c *gin.Context) {
	var req playerRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.sessions.Join(c.Request.Context(), c.Param("code"), callerName(c, req.Username))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, joinResponse{
		Session: viewSession(res.Session),
		Player:  viewPlayer(res.Player),
		Roster:  res.Roster,
	})
}

func (h *Handler) startSession(c *gin.Context) {
	h.advance(c, h.sessions.Start)
}

func (h *Handler) finishSession(c *gin.Context) {
	h.advance(c, h.sessions.Finish)
}

func (h *Handler) advance(c *gin.Context, step func(ctx context.Context, code, username string) (domain.GameSession, error)) {
	var req playerRequest
	if err := bindOptional(c, &req); err != nil {
		badRequest(c, err)
		return
	}
	session, err := step(c.Request.Context(), c.Param("code"), callerName(c, req.Username))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewSession(session))
}

func (h *Handler) generateQuestions(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.questions.Generate(c.Request.Context(), app.GenerateRequest{
		Username: callerName(c, req.Username),
		Params:   req.params(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, generateResponse{Quiz: res.Quiz, Questions: viewQuestions(res.Questions)})
}

func (h *Handler) submitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.answers.Submit(c.Request.Context(), app.SubmitRequest{
		QuestionID: req.QuestionID,
		Username:   callerName(c, req.Username),
		Answer:     req.Answer,
		Score:      req.Score,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewAnswer(res))
}

func (h *Handler) explanation(c *gin.Context) {
	id := c.Param("id")
	text, err := h.explanations.Explain(c.Request.Context(), id, callerName(c, c.Query("username")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, explanationResponse{QuestionID: id, Explanation: text})
}

func (h *Handler) listHistory(c *gin.Context) {
	history, err := h.history.ListAnswered(c.Request.Context(), callerName(c, c.Query("username")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
