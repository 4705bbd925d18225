package stock

import (
	"errors"

	"github.com/namoruso/inventory/internal/domain"
)

var (
	ErrUnknownDirection  = errors.New("unknown adjustment direction")
	ErrProductInactive   = errors.New("non-existent product")
	ErrNegativeDelta     = errors.New("adjustment quantity must not be negative")
	ErrMaximumExceeded   = errors.New("stock would exceed maximum")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Direction string

const (
	Increase Direction = "increase"
	Decrease Direction = "decrease"
)

func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Increase:
		return Increase, nil
	case Decrease:
		return Decrease, nil
	default:
		return "", ErrUnknownDirection
	}
}

// ComputeAdjustment returns the stock after applying delta in dir.
//
// The decrease path relies on current satisfying the product bound invariant
// (minimum >= 0), so the result never drops below zero. Bounds are compared
// before the arithmetic, so no delta can overflow.
func ComputeAdjustment(current *domain.Product, dir Direction, delta int64) (int64, error) {
	if current == nil || !current.Active {
		return 0, ErrProductInactive
	}

	if delta < 0 {
		return 0, ErrNegativeDelta
	}

	switch dir {
	case Increase:
		if delta > current.Maximum-current.Stock {
			return 0, ErrMaximumExceeded
		}
		return current.Stock + delta, nil
	case Decrease:
		if delta > current.Stock-current.Minimum {
			return 0, ErrInsufficientStock
		}
		return current.Stock - delta, nil
	default:
		return 0, ErrUnknownDirection
	}
}
