package api

import (
	"errors"
	"net/http"

	"github.com/phrazzld/pulseweave/internal/api/shared"
	"github.com/phrazzld/pulseweave/internal/domain"
	"github.com/phrazzld/pulseweave/internal/service/auth"
	"github.com/phrazzld/pulseweave/internal/task"
)

// ErrInvalidID is returned for malformed path ids
var ErrInvalidID = errors.New("invalid id")

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, task.ErrStateConflict):
		return http.StatusConflict

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest

	// Shutting down
	case errors.Is(err, task.ErrRegistryClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"

	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, task.ErrTooLate):
		return "Task is already being processed and can no longer be cancelled"

	case errors.Is(err, task.ErrStateConflict):
		return "Task is not in a state that allows this operation"

	case errors.Is(err, domain.ErrValidation):
		return "Either text or event.transcript is required"

	case errors.Is(err, ErrInvalidID):
		return "Invalid task id"

	case errors.Is(err, task.ErrRegistryClosed):
		return "Server is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError writes the status and safe message for err and logs the
// redacted original. A non-empty message overrides the mapped one.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if message == "" {
		message = GetSafeErrorMessage(err)
	}
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), message, err)
}
