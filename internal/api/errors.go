package api

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/staffdeck/staffdeck/internal/types"
)

// errorBody is the failure envelope. Stack is only populated outside
// production, mirroring the success envelope's shape otherwise.
type errorBody struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

// statusFor maps an error kind to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNotAuthenticated), errors.Is(err, types.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, types.ErrInvalidCredentials), errors.Is(err, types.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrConflict), errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrPageOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleError is the single funnel for request failures. Every handler routes
// errors here so status mapping and the response shape cannot drift.
func HandleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := statusFor(err)
	if message == "" {
		message = err.Error()
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Internal error", slog.Any("error", err))
		// Never leak internals to the client.
		message = "Internal Server Error"
	}

	body := errorBody{
		Success:   false,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}
	if os.Getenv("APP_ENV") != "production" {
		body.Stack = string(debug.Stack())
	}
	WriteJSONResponse(w, r, status, body)
}

// ErrorResponse writes a failure envelope with an explicit status code, for
// transport-level failures that have no domain error attached.
func ErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	WriteJSONResponse(w, r, status, errorBody{
		Success:   false,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
