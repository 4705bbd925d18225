package validator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPayload = errors.New("invalid payload")
	ErrOutOfBounds    = errors.New("minimum exceeds maximum or stock out of bounds")

	ErrMinimumExceedsMaximum = fmt.Errorf("%w: minimum exceeds maximum", ErrOutOfBounds)
	ErrStockAboveMaximum     = fmt.Errorf("%w: stock above maximum", ErrOutOfBounds)
	ErrStockBelowMinimum     = fmt.Errorf("%w: stock below minimum", ErrOutOfBounds)

	ErrNonPositiveMaximum = errors.New("non-positive maximum not allowed")
	ErrNegativeMinimum    = errors.New("negative minimum not allowed")
)

// PayloadError lists field-level problems of a malformed payload.
type PayloadError struct {
	Fields map[string]string
}

func (e *PayloadError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, msg := range e.Fields {
		parts = append(parts, msg)
	}

	return ErrInvalidPayload.Error() + ": " + strings.Join(parts, "; ")
}

func (e *PayloadError) Unwrap() error {
	return ErrInvalidPayload
}
