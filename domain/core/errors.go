package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Ingestion errors
	ErrDataFormat    = errors.New("unrecognized table shape")
	ErrValueCoercion = errors.New("value coercion failed")

	// Mapping errors
	ErrNoMapping = errors.New("variable label did not resolve to a canonical id")

	// Temporal errors
	ErrFrequencyMismatch = errors.New("frequency mismatch")
	ErrNoOverlap         = errors.New("aligned key set is empty")

	// Metric errors
	ErrInsufficientData  = errors.New("insufficient aligned points")
	ErrDivisionUndefined = errors.New("measured mean is zero")

	// Run errors
	ErrInvalidConfig = errors.New("invalid run configuration")
	ErrCancelled     = errors.New("run cancelled")
	ErrTimedOut      = errors.New("pair processing timed out")
)

// Error constructors with context

func NewDataFormatError(reason string) error {
	return fmt.Errorf("%w: %s", ErrDataFormat, reason)
}

func NewCoercionError(column, value string, cause error) error {
	return fmt.Errorf("%w: column %q value %q: %v", ErrValueCoercion, column, value, cause)
}

func NewNoMappingError(label string, bestCandidate string, score float64) error {
	if bestCandidate == "" {
		return fmt.Errorf("%w: %q", ErrNoMapping, label)
	}
	return fmt.Errorf("%w: %q (best candidate %q at %.2f)", ErrNoMapping, label, bestCandidate, score)
}

func NewFrequencyMismatchError(from, to string) error {
	return fmt.Errorf("%w: cannot resample %s to %s", ErrFrequencyMismatch, from, to)
}

func NewConfigError(field, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, reason)
}

// Error checking helpers

func IsDataFormatError(err error) bool {
	return errors.Is(err, ErrDataFormat) || errors.Is(err, ErrValueCoercion)
}

func IsMappingError(err error) bool {
	return errors.Is(err, ErrNoMapping)
}

func IsTemporalError(err error) bool {
	return errors.Is(err, ErrFrequencyMismatch) || errors.Is(err, ErrNoOverlap)
}

func IsMetricError(err error) bool {
	return errors.Is(err, ErrInsufficientData) || errors.Is(err, ErrDivisionUndefined)
}
