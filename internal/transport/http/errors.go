package http

import (
	"log"
	"net/http"

	"cyberhoot-service/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Error   domain.Kind `json:"error"`
	Message string      `json:"message"`
}

func statusOf(kind domain.Kind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindGateway, domain.KindContractViolation, domain.KindMalformedEnvelope, domain.KindGradingFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// errorOf renders err for clients. Internal failures are logged and reported generically.
func errorOf(err error) errorBody {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		log.Printf("internal error: %v", err)
		return errorBody{Error: kind, Message: "internal server error"}
	}
	return errorBody{Error: kind, Message: err.Error()}
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(domain.KindOf(err)), errorOf(err))
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: domain.KindValidation, Message: err.Error()})
}
