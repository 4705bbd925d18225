package repository

import "errors"

var (
	ErrProductNotFound = errors.New("non-existent product")
	ErrDuplicateSKU    = errors.New("existing SKU")
	ErrBoundsViolation = errors.New("stored bounds violated")
	ErrUnavailable     = errors.New("inventory store unavailable")
)

// RejectedError wraps the error a StockFunc refused an adjustment with.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string {
	return e.Err.Error()
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}
