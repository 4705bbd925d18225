package utils

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
)

func TestParseWithFallback(t *testing.T) {
	t.Setenv("INVENTORY_TEST_VAR", "  value ")
	require.Equal(t, "value", ParseWithFallback("INVENTORY_TEST_VAR", "fallback"))

	t.Setenv("INVENTORY_TEST_VAR", "   ")
	require.Equal(t, "fallback", ParseWithFallback("INVENTORY_TEST_VAR", "fallback"))

	require.Equal(t, "fallback", ParseWithFallback("INVENTORY_TEST_VAR_MISSING", "fallback"))
}

func TestFormatValidationError(t *testing.T) {
	type input struct {
		Name string `validate:"required"`
		Code string `validate:"max=3"`
	}

	err := validator.New().Struct(input{Code: "ABCDE"})
	require.Error(t, err)

	formatted := FormatValidationError(err)
	require.Equal(t, "name is required", formatted["name"])
	require.Equal(t, "code must be at most 3", formatted["code"])

	formatted = FormatValidationError(errors.New("boom"))
	require.Equal(t, "boom", formatted["payload"])
}

func TestExecuteWithBreaker(t *testing.T) {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "test",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	val, err := ExecuteWithBreaker(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, val)

	failure := errors.New("connection refused")
	_, err = ExecuteWithBreaker(cb, func() (int, error) { return 0, failure })
	require.ErrorIs(t, err, failure)
	require.False(t, IsBreakerRejection(err))

	_, err = ExecuteWithBreaker(cb, func() (int, error) { return 1, nil })
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.True(t, IsBreakerRejection(err))
}
