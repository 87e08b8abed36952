package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/CamBridge/internal/app"
	"github.com/dkeye/CamBridge/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain errors to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.Is(err, domain.ErrInvalidOffer):
		return http.StatusBadRequest, "invalid_offer"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, app.ErrRegistryClosed):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.Is(err, domain.ErrSourceUnreachable):
		return http.StatusBadGateway, "media_source_error"
	case errors.Is(err, domain.ErrNegotiation):
		return http.StatusInternalServerError, "negotiation_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{"error": code, "details": err.Error()})
}
