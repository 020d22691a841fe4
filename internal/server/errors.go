package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stowagehq/stowage/backend/internal/apperr"
	"github.com/stowagehq/stowage/backend/internal/auth"
)

const (
	msgMissingCredential = "Authentication required"
	msgExpiredToken      = "Invalid or expired token"
	msgMalformedToken    = "Malformed credentials"
)

// writeError maps the taxonomy to status codes. Unexpected failures become an
// opaque 500 so internals never leak.
func (h *httpHandler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		message = apperr.MessageOf(err)
	case apperr.KindNotFound, apperr.KindProfileNotFound:
		status = http.StatusNotFound
		message = apperr.MessageOf(err)
	case apperr.KindForbidden:
		status = http.StatusForbidden
		message = apperr.MessageOf(err)
	case apperr.KindConflict:
		status = http.StatusConflict
		message = apperr.MessageOf(err)
	case apperr.KindAuth:
		status = http.StatusUnauthorized
		message = apperr.MessageOf(err)
	case apperr.KindUpstream:
		status = http.StatusBadGateway
		message = apperr.MessageOf(err)
	default:
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			status = http.StatusUnauthorized
			message = msgExpiredToken
		case errors.Is(err, auth.ErrMalformedToken):
			status = http.StatusUnauthorized
			message = msgMalformedToken
		default:
			h.logger.Error("request failed", zap.Error(err))
		}
	}

	c.JSON(status, gin.H{"message": message})
}

func (h *httpHandler) abortWithError(c *gin.Context, err error) {
	h.writeError(c, err)
	c.Abort()
}
