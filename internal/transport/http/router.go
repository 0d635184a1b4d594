package http

import (
	"net/http"
	"time"

	"cyberhoot-service/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	// Verifier enables bearer authentication; nil leaves every route open.
	Verifier     auth.Verifier
	AllowOrigins []string
}

// NewRouter mounts the REST routes under /api and the lobby socket at /ws.
func NewRouter(h *Handler, ws *WSHandler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	authenticate := Authenticate(cfg.Verifier)
	api := r.Group("/api", authenticate)
	{
		sessions := api.Group("/sessions")
		sessions.POST("", h.createSession)
		sessions.GET("/:code", h.getSession)
		sessions.GET("/:code/questions", h.sessionQuestions)
		sessions.POST("/:code/join", h.joinSession)
		sessions.POST("/:code/start", h.startSession)
		sessions.POST("/:code/finish", h.finishSession)

		api.POST("/questions/generate", h.generateQuestions)
		api.GET("/questions/:id/explanation", h.explanation)
		api.POST("/answers", h.submitAnswer)
		api.GET("/history", h.listHistory)
	}

	r.GET("/ws", authenticate, ws.Handle)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
