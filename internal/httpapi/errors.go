package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"chatd/internal/chat"
	"chatd/pkg/types"
)

// retryAfter is the Retry-After value, in seconds, sent with 429 and busy 503
// responses.
const retryAfter = "1"

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case chat.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrOverloaded):
		return http.StatusTooManyRequests
	case errors.Is(err, chat.ErrBusy), errors.Is(err, chat.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
