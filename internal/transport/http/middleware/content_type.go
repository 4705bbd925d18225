package middleware

import "github.com/gofiber/fiber/v2"

// RequireJSON answers 415 unless the request declares a JSON body.
func RequireJSON() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !c.Is("json") {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Content-Type must be application/json",
			})
		}

		return c.Next()
	}
}
