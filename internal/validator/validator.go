package validator

import (
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/pkg/utils"
)

type Validator struct {
	validate *playground.Validate
}

func New() *Validator {
	v := playground.New(playground.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails for an empty tag or nil func
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	return &Validator{validate: v}
}

// ValidatePayload derives the canonical bounds of a create/update payload.
//
// Missing values default as minimum 0, stock = minimum, maximum = minimum+1.
// The bound checks then run in a fixed order: minimum > maximum, stock >
// maximum, stock < minimum, maximum <= 0, minimum < 0.
func (v *Validator) ValidatePayload(payload *domain.InventoryPayload) (domain.Bounds, error) {
	if payload == nil {
		return domain.Bounds{}, ErrInvalidPayload
	}

	if err := v.validate.Struct(payload); err != nil {
		return domain.Bounds{}, &PayloadError{Fields: utils.FormatValidationError(err)}
	}

	minimum := valueOr(payload.Minimum, 0)
	stock := valueOr(payload.Stock, minimum)
	maximum := valueOr(payload.Maximum, minimum+1)

	switch {
	case minimum > maximum:
		return domain.Bounds{}, ErrMinimumExceedsMaximum
	case stock > maximum:
		return domain.Bounds{}, ErrStockAboveMaximum
	case stock < minimum:
		return domain.Bounds{}, ErrStockBelowMinimum
	case maximum <= 0:
		return domain.Bounds{}, ErrNonPositiveMaximum
	case minimum < 0:
		return domain.Bounds{}, ErrNegativeMinimum
	}

	return domain.Bounds{Stock: stock, Maximum: maximum, Minimum: minimum}, nil
}

func valueOr(v *int64, fallback int64) int64 {
	if v == nil {
		return fallback
	}
	return *v
}
