package utils

import (
	"errors"

	"github.com/sony/gobreaker"
)

func ExecuteWithBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})

	typed, _ := res.(T)

	return typed, err
}

// IsBreakerRejection reports whether err was produced by the breaker itself
// rather than by the protected call.
func IsBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
