// Package response centralizes HTTP response shapes and helpers.
// Handlers rely on it to keep controllers thin and uniform.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/revision-history-service/internal/enumerate"
	"github.com/maxviazov/revision-history-service/internal/repository"
	"github.com/maxviazov/revision-history-service/internal/service"
)

// CodeBadContinue is the code reported for unusable continuation tokens.
const CodeBadContinue = "badcontinue"

// StatusClientClosedRequest is the non-standard status reported when the
// client disconnects before the response is ready.
const StatusClientClosedRequest = 499

// ErrorPayload is the canonical error envelope returned by the API.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Code        string               `json:"code,omitempty"`
	Message     string               `json:"message,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// MapError converts a domain / infrastructure error into an HTTP status and payload.
// Extend here as new domain error categories emerge.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}

	if errors.Is(err, service.ErrInvalidInput) {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}
	if ue, ok := enumerate.IsUsage(err); ok {
		return http.StatusBadRequest, ErrorPayload{Error: "usage_error", Code: ue.Code, Message: ue.Info}
	}
	var ce *enumerate.ContinuationError
	if errors.As(err, &ce) {
		return http.StatusBadRequest, ErrorPayload{Error: "usage_error", Code: CodeBadContinue, Message: ce.Error()}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "not_found"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, ErrorPayload{Error: "already_exists"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, ErrorPayload{Error: "conflict"}
	case errors.Is(err, context.Canceled):
		// client went away; nothing is written to it anyway
		return StatusClientClosedRequest, ErrorPayload{Error: "client_closed_request"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorPayload{Error: "timeout"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
	}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	if status >= http.StatusInternalServerError {
		// keep the cause for the request logger
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, payload)
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}
