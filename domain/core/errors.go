package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Input errors
	ErrFormat       = errors.New("malformed tabular input")
	ErrEmptyDataset = errors.New("no usable rows in dataset")

	// Column errors
	ErrColumnNotFound   = errors.New("column not found")
	ErrNonNumericColumn = errors.New("column is not numeric")

	// Computation errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrFitConvergence   = errors.New("maximum-likelihood fit failed to converge")
)

// Error constructors with context
func NewFormatError(reason string) error {
	return fmt.Errorf("%w: %s", ErrFormat, reason)
}

func NewColumnNotFoundError(column string) error {
	return fmt.Errorf("%w: %s", ErrColumnNotFound, column)
}

func NewNonNumericColumnError(column string) error {
	return fmt.Errorf("%w: %s", ErrNonNumericColumn, column)
}

func NewInsufficientDataError(operation string, have, need int) error {
	return fmt.Errorf("%w: %s requires %d observations, have %d", ErrInsufficientData, operation, need, have)
}

func NewFitConvergenceError(family string, iterations int) error {
	return fmt.Errorf("%w: %s after %d iterations", ErrFitConvergence, family, iterations)
}

// Error checking helpers
func IsFormatError(err error) bool {
	return errors.Is(err, ErrFormat)
}

func IsEmptyDatasetError(err error) bool {
	return errors.Is(err, ErrEmptyDataset)
}

func IsInsufficientDataError(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}

func IsFitConvergenceError(err error) bool {
	return errors.Is(err, ErrFitConvergence)
}

func IsColumnError(err error) bool {
	return errors.Is(err, ErrColumnNotFound) || errors.Is(err, ErrNonNumericColumn)
}
