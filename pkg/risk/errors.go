package risk

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientFeatures matches errors for inputs narrower than the classifier.
	ErrInsufficientFeatures = errors.New("insufficient features")
	// ErrPredictionFailure matches errors raised while invoking the classifier.
	ErrPredictionFailure = errors.New("prediction failure")
)

// InsufficientFeaturesError reports the numeric column count against the
// classifier input width.
type InsufficientFeaturesError struct {
	Actual   int
	Expected int
}

func (e *InsufficientFeaturesError) Error() string {
	return fmt.Sprintf("input has %d numeric columns but the model expects %d", e.Actual, e.Expected)
}

func (e *InsufficientFeaturesError) Is(target error) bool {
	return target == ErrInsufficientFeatures
}

// PredictionError wraps an error returned by the classifier.
type PredictionError struct {
	Cause error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed: %v", e.Cause)
}

func (e *PredictionError) Unwrap() error {
	return e.Cause
}

func (e *PredictionError) Is(target error) bool {
	return target == ErrPredictionFailure
}
