// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and form a stable, machine-readable taxonomy
// that supplements human-readable messages. Handlers pick the most specific
// code and pass it to fail() with the HTTP status.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/askadesk/assistant-backend/internal/services"
)

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeConflict    = "conflict"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeAnswerFailed       = "answer_failed"
	ErrCodeBackendUnavailable = "backend_unavailable"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
)

// failErr translates service-layer sentinels into the HTTP error taxonomy.
// Unknown errors default to a 500 internal_error.
func failErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAssistantNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "assistant not found")
	case errors.Is(err, services.ErrConversationNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
	case errors.Is(err, services.ErrEntryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "knowledge entry not found")
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message exceeds the maximum length")
	case errors.Is(err, services.ErrRateLimited):
		c.Header("Retry-After", "60")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "message limit reached, try again shortly")
	case errors.Is(err, services.ErrDemoProtected):
		fail(c, http.StatusConflict, ErrCodeConflict, "the demo assistant cannot be deleted")
	case errors.Is(err, services.ErrBackendUnavailable):
		fail(c, http.StatusInternalServerError, ErrCodeBackendUnavailable, "generative backend unavailable")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
