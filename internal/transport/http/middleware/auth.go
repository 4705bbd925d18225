package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/namoruso/inventory/internal/auth"
	"github.com/namoruso/inventory/pkg/mylogger"
	"go.uber.org/zap"
)

const (
	LocalsSubject = "subject"
	LocalsRole    = "role"
)

// NewAuthMiddleware verifies the bearer token and stores subject and role in
// the request locals.
func NewAuthMiddleware(authenticator *auth.Authenticator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := authenticator.Authenticate(auth.BearerToken(c.Get(fiber.HeaderAuthorization)))
		if err != nil {
			mylogger.Warn(
				c.UserContext(),
				logger,
				"Authentication failed",
				zap.String("path", c.Path()),
				zap.Error(err),
			)

			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage(err)})
		}

		c.Locals(LocalsSubject, claims.Subject)
		c.Locals(LocalsRole, claims.Role())
		return c.Next()
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "Unauthorized: missing token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "Unauthorized: token expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Unauthorized: invalid token signature"
	default:
		return "Unauthorized: invalid token"
	}
}

// RequireCapability rejects callers whose role is outside the capability.
// It must run after NewAuthMiddleware.
func RequireCapability(capability auth.Capability, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalsRole).(auth.Role)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized: missing role"})
		}

		if err := auth.Authorize(role, capability); err != nil {
			mylogger.Warn(
				c.UserContext(),
				logger,
				"Access denied",
				zap.Any("subject", c.Locals(LocalsSubject)),
				zap.String("role", role.String()),
				zap.String("capability", capability.String()),
			)

			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden: insufficient role"})
		}

		return c.Next()
	}
}
