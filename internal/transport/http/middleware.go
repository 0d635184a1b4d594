package http

import (
	"net/http"
	"strings"

	"cyberhoot-service/internal/auth"
	"github.com/gin-gonic/gin"
)

const usernameKey = "username"

// Authenticate resolves the bearer token to a username. A nil verifier turns
// authentication off and callers name themselves in the request.
func Authenticate(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil {
			c.Next()
			return
		}
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			// browsers cannot set headers on websocket upgrades
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: "authorization required"})
			return
		}
		username, err := verifier.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "unauthorized", Message: err.Error()})
			return
		}
		c.Set(usernameKey, username)
		c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// callerName prefers the authenticated username over the one claimed in the request.
func callerName(c *gin.Context, claimed string) string {
	if username := c.GetString(usernameKey); username != "" {
		return username
	}
	return strings.TrimSpace(claimed)
}
