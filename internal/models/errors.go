package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for missing identities, empty vectors, non-positive topK
	// and malformed thresholds.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDimensionMismatch is returned when two vectors have different lengths and
	// truncation is not enabled.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrUpstreamExtractor wraps failures of the external feature extractor.
	ErrUpstreamExtractor = errors.New("feature extractor failed")
)

// DimensionMismatchError reports the two lengths involved.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// InvalidInputf returns an error wrapping ErrInvalidInput with a formatted message.
func InvalidInputf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error wrapping ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ExtractorError wraps err as an upstream extractor failure.
func ExtractorError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrUpstreamExtractor, err)
}
