package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/namoruso/inventory/internal/auth"
	"github.com/namoruso/inventory/internal/metrics"
	"github.com/namoruso/inventory/internal/transport/http/handler"
	"github.com/namoruso/inventory/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type Handlers struct {
	Inventory *handler.InventoryHandler
}

func RegisterRoutes(
	app *fiber.App,
	h *Handlers,
	authenticator *auth.Authenticator,
	m *metrics.Metrics,
	logger *zap.Logger,
) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("Inventory service is alive!")
	})

	if m != nil {
		app.Get("/metrics", m.Handler())
	}

	read := middleware.RequireCapability(auth.CapabilityRead, logger)
	adjust := middleware.RequireCapability(auth.CapabilityAdjust, logger)
	manage := middleware.RequireCapability(auth.CapabilityManage, logger)
	jsonBody := middleware.RequireJSON()

	inventory := app.Group("/api/inventory", middleware.NewAuthMiddleware(authenticator, logger))

	inventory.Get("/all", read, h.Inventory.ListActive)
	inventory.Get("/sku/:sku", read, h.Inventory.FindBySKU)
	inventory.Get("/:id", read, h.Inventory.FindByID)

	inventory.Post("/add", manage, jsonBody, h.Inventory.Create)
	inventory.Put("/update/:id/:mode", adjust, jsonBody, h.Inventory.AdjustStock)
	inventory.Put("/update/:id", manage, jsonBody, h.Inventory.Update)
	inventory.Delete("/delete/:id", manage, h.Inventory.Delete)
}
