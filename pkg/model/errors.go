package model

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadFailure matches every error returned while loading a model.
	ErrLoadFailure = errors.New("model load failure")

	ErrEmptyModel         = errors.New("model content is empty")
	ErrUnknownFormat      = errors.New("unknown model format")
	ErrUnsupportedVersion = errors.New("unsupported model schema version")
	ErrUnknownKind        = errors.New("unknown model kind")
	ErrInvalidModel       = errors.New("invalid model")
)

// LoadError carries the source of a model that could not be loaded and
// the underlying cause.
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load model: %v", e.Cause)
	}
	return fmt.Sprintf("failed to load model from %s: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoadFailure
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidModel, fmt.Sprintf(format, args...))
}
