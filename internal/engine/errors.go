package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Execute when no model is loaded.
	ErrNotReady = errors.New("engine not ready")
	// ErrAlreadyLoaded is returned when Load is called more than once.
	ErrAlreadyLoaded = errors.New("engine already loaded")
	// ErrReentrant is returned when Execute is called while another call runs.
	ErrReentrant = errors.New("engine is already executing")
	// ErrServing is returned by Unload while a call is executing.
	ErrServing = errors.New("engine is serving a call")
)

// LoadError reports a failure to bring the engine to Ready. It is fatal to
// startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("load model: %v", e.Err)
	}
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IsLoadError reports whether err is (or wraps) a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// InferenceError wraps a failed or malformed generation.
type InferenceError struct{ Err error }

func (e *InferenceError) Error() string { return "inference failed: " + e.Err.Error() }

func (e *InferenceError) Unwrap() error { return e.Err }

// IsInferenceError reports whether err is (or wraps) an InferenceError.
func IsInferenceError(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie)
}

// dependencyUnavailableError signals a missing runtime dependency (e.g. a
// binary built without llama support).
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var de dependencyUnavailableError
	return errors.As(err, &de)
}
