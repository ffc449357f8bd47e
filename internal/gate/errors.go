package gate

import (
	"context"
	"errors"
)

var (
	// ErrTimeout is returned when a deadline elapses before the call completed.
	ErrTimeout = errors.New("timed out waiting for the engine")
	// ErrCancelled is returned when the caller cancelled or the gate shut down.
	ErrCancelled = errors.New("request cancelled")
	// ErrQueueFull is returned when the wait list is at its configured bound.
	ErrQueueFull = errors.New("admission queue full")
	// ErrClosed is returned for submissions after Close. Waiters resolved by
	// Close carry both ErrCancelled and ErrClosed.
	ErrClosed = errors.New("admission gate closed")
)

// IsTooBusy reports whether err is a capacity condition the caller may retry.
func IsTooBusy(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrQueueFull) || errors.Is(err, ErrClosed)
}

// contextError maps a context error onto the gate's taxonomy.
func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrCancelled
}
