package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy means the request could not get the engine in time, was
	// cancelled, or the server is shutting down. Clients may retry.
	ErrBusy = errors.New("server busy")
	// ErrOverloaded accompanies ErrBusy when the wait list was full.
	ErrOverloaded = errors.New("server overloaded")
	// ErrUnavailable means the engine is not loaded or not ready.
	ErrUnavailable = errors.New("model unavailable")
	// ErrGenerationFailed wraps an engine failure during generation.
	ErrGenerationFailed = errors.New("generation failed")
)

// ValidationError reports an invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsBusy reports whether err is a transient capacity condition.
func IsBusy(err error) bool { return errors.Is(err, ErrBusy) }

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
