package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/namoruso/inventory/internal/auth"
	"github.com/namoruso/inventory/internal/repository"
	"github.com/namoruso/inventory/internal/stock"
	"github.com/namoruso/inventory/internal/validator"
)

const internalErrorMessage = "internal error"

// mapErrorStatus picks the HTTP status and the caller-facing message for err.
// Store error text never reaches the message.
func mapErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingCredential),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrInvalidSignature),
		errors.Is(err, auth.ErrMalformedClaims):
		return fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, auth.ErrInsufficientRole):
		return fiber.StatusForbidden, "Forbidden: insufficient role"
	case errors.Is(err, repository.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "service temporarily unavailable"
	case errors.Is(err, repository.ErrProductNotFound), errors.Is(err, stock.ErrProductInactive):
		return fiber.StatusNotFound, repository.ErrProductNotFound.Error()
	case errors.Is(err, repository.ErrDuplicateSKU):
		return fiber.StatusConflict, repository.ErrDuplicateSKU.Error()
	case errors.Is(err, repository.ErrBoundsViolation):
		return fiber.StatusBadRequest, validator.ErrOutOfBounds.Error()
	case errors.Is(err, validator.ErrMinimumExceedsMaximum):
		return fiber.StatusBadRequest, validator.ErrMinimumExceedsMaximum.Error()
	case errors.Is(err, validator.ErrStockAboveMaximum):
		return fiber.StatusBadRequest, validator.ErrStockAboveMaximum.Error()
	case errors.Is(err, validator.ErrStockBelowMinimum):
		return fiber.StatusBadRequest, validator.ErrStockBelowMinimum.Error()
	case errors.Is(err, validator.ErrNonPositiveMaximum):
		return fiber.StatusBadRequest, validator.ErrNonPositiveMaximum.Error()
	case errors.Is(err, validator.ErrNegativeMinimum):
		return fiber.StatusBadRequest, validator.ErrNegativeMinimum.Error()
	case errors.Is(err, validator.ErrInvalidPayload):
		return fiber.StatusBadRequest, validator.ErrInvalidPayload.Error()
	case errors.Is(err, stock.ErrUnknownDirection):
		return fiber.StatusBadRequest, stock.ErrUnknownDirection.Error()
	case errors.Is(err, stock.ErrNegativeDelta):
		return fiber.StatusBadRequest, stock.ErrNegativeDelta.Error()
	case errors.Is(err, stock.ErrMaximumExceeded):
		return fiber.StatusBadRequest, stock.ErrMaximumExceeded.Error()
	case errors.Is(err, stock.ErrInsufficientStock):
		return fiber.StatusBadRequest, stock.ErrInsufficientStock.Error()
	default:
		return fiber.StatusInternalServerError, internalErrorMessage
	}
}

// writeError sends the mapped error body. Malformed payloads also carry their
// per-field messages.
func writeError(c *fiber.Ctx, err error) error {
	status, message := mapErrorStatus(err)

	body := fiber.Map{"error": message}

	var payloadErr *validator.PayloadError
	if errors.As(err, &payloadErr) {
		body["fields"] = payloadErr.Fields
	}

	return c.Status(status).JSON(body)
}
