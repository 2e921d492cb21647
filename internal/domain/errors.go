package domain

import (
	"errors"
	"fmt"
)

// Domain errors. Callers match them with errors.Is.
var (
	// ErrLoadFailure indicates a source file could not be parsed.
	// It is reported per file and never aborts a directory scan.
	ErrLoadFailure = errors.New("load failure")

	// ErrServiceUnavailable indicates the embedding or language-model service
	// failed or timed out.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrDimensionMismatch indicates an embedding whose length disagrees with
	// the index configuration.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrAlreadyExists indicates an upload whose filename is already taken.
	ErrAlreadyExists = errors.New("already exists")

	ErrInvalidInput = errors.New("invalid input")
)

// DimensionMismatchError carries the expected and actual vector lengths.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error {
	return ErrDimensionMismatch
}
