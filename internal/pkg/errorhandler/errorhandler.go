// Package errorhandler logs failed requests before writing the error envelope.
package errorhandler

import (
	"context"
	"net/http"

	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/response"
)

// HandleError logs err with the request logger and sends an error response.
// Server side failures are logged at error level, client errors at warn.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	l := logger.FromContext(ctx)
	event := l.Warn()
	if status >= http.StatusInternalServerError {
		event = l.Error()
	}
	if err != nil {
		event = event.Err(err)
	}
	event.
		Str("error_code", code).
		Int("status_code", status).
		Msg("Request error")

	response.Error(w, status, code, message)
}

// Internal logs err and sends a generic 500.
func Internal(ctx context.Context, w http.ResponseWriter, err error) {
	HandleError(ctx, w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", err)
}

// Unavailable logs err and sends a retryable 503.
func Unavailable(ctx context.Context, w http.ResponseWriter, err error) {
	HandleError(ctx, w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Service temporarily unavailable, please retry", err)
}

// LogValidationError logs rejected request fields at debug level.
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	logger.FromContext(ctx).Debug().
		Interface("validation_errors", fieldErrors).
		Msg("Validation error")
}
