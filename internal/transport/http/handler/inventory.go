package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/internal/service"
	"github.com/namoruso/inventory/internal/transport/http/middleware"
	"github.com/namoruso/inventory/pkg/mylogger"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	service service.InventoryService
	timeout time.Duration
	logger  *zap.Logger
}

func NewInventoryHandler(service service.InventoryService, timeout time.Duration, logger *zap.Logger) *InventoryHandler {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}

	return &InventoryHandler{
		service: service,
		timeout: timeout,
		logger:  logger,
	}
}

// StockUpdateInput is the body of a bounded stock adjustment.
type StockUpdateInput struct {
	Update *int64 `json:"update"`
}

func (h *InventoryHandler) ListActive(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	products, err := h.service.ListActive(ctx)
	if err != nil {
		return h.fail(ctx, c, "list products failed", err)
	}

	return c.Status(fiber.StatusOK).JSON(products)
}

func (h *InventoryHandler) FindByID(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id, ok := h.parseID(ctx, c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	product, err := h.service.FindByID(ctx, id)
	if err != nil {
		return h.fail(ctx, c, "find by id failed", err, zap.Int64("product_id", id))
	}

	return c.Status(fiber.StatusOK).JSON(product)
}

func (h *InventoryHandler) FindBySKU(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	sku := c.Params("sku")
	if sku == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sku is required"})
	}

	product, err := h.service.FindBySKU(ctx, sku)
	if err != nil {
		return h.fail(ctx, c, "find by sku failed", err, zap.String("sku", sku))
	}

	return c.Status(fiber.StatusOK).JSON(product)
}

func (h *InventoryHandler) Create(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	payload := new(domain.InventoryPayload)
	if err := c.BodyParser(payload); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing data or wrong types"})
	}

	created, err := h.service.Create(ctx, payload)
	if err != nil {
		return h.fail(ctx, c, "create product failed", err)
	}

	mylogger.Info(
		ctx,
		h.logger,
		"create product succeeded",
		zap.Int64("product_id", created.ID),
		zap.Any("subject", c.Locals(middleware.LocalsSubject)),
	)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":      created.ID,
		"name":    created.Name,
		"sku":     created.SKU,
		"message": "product created",
	})
}

func (h *InventoryHandler) Update(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id, ok := h.parseID(ctx, c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	payload := new(domain.InventoryPayload)
	if err := c.BodyParser(payload); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing failed", zap.Int64("product_id", id), zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing data or wrong types"})
	}

	updated, err := h.service.Update(ctx, id, payload)
	if err != nil {
		return h.fail(ctx, c, "update product failed", err, zap.Int64("product_id", id))
	}

	mylogger.Info(
		ctx,
		h.logger,
		"update product succeeded",
		zap.Int64("product_id", id),
		zap.Any("subject", c.Locals(middleware.LocalsSubject)),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":         updated.ID,
		"name":       updated.Name,
		"sku":        updated.SKU,
		"stock":      updated.Stock,
		"maximun":    updated.Maximum,
		"minimun":    updated.Minimum,
		"status":     updated.Active,
		"updated_at": updated.UpdatedAt,
		"message":    "product updated",
	})
}

func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id, ok := h.parseID(ctx, c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	input := new(StockUpdateInput)
	if err := c.BodyParser(input); err != nil || input.Update == nil {
		mylogger.Warn(ctx, h.logger, "invalid stock update body", zap.Int64("product_id", id), zap.Error(err))

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing data or wrong types"})
	}

	mode := c.Params("mode")

	change, err := h.service.AdjustStock(ctx, id, mode, *input.Update)
	if err != nil {
		return h.fail(ctx, c, "stock adjustment failed", err, zap.Int64("product_id", id), zap.String("mode", mode))
	}

	mylogger.Info(
		ctx,
		h.logger,
		"stock adjustment succeeded",
		zap.Int64("product_id", id),
		zap.String("mode", mode),
		zap.Any("subject", c.Locals(middleware.LocalsSubject)),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":             change.ID,
		"name":           change.Name,
		"previous_stock": change.PreviousStock,
		"stock":          change.Stock,
		"message":        "stock updated",
	})
}

func (h *InventoryHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	id, ok := h.parseID(ctx, c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}

	if err := h.service.Delete(ctx, id); err != nil {
		return h.fail(ctx, c, "delete product failed", err, zap.Int64("product_id", id))
	}

	mylogger.Info(
		ctx,
		h.logger,
		"product deleted successfully",
		zap.Int64("product_id", id),
		zap.Any("subject", c.Locals(middleware.LocalsSubject)),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"id":      id,
		"message": "product deleted",
	})
}

func (h *InventoryHandler) parseID(ctx context.Context, c *fiber.Ctx) (int64, bool) {
	idStr := c.Params("id")

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		mylogger.Warn(ctx, h.logger, "invalid product id", zap.String("id", idStr))
		return 0, false
	}

	return id, true
}

func (h *InventoryHandler) fail(ctx context.Context, c *fiber.Ctx, msg string, err error, fields ...zap.Field) error {
	status, _ := mapErrorStatus(err)

	fields = append(fields, zap.Int("http_status", status), zap.Error(err))
	if status >= fiber.StatusInternalServerError {
		mylogger.Error(ctx, h.logger, msg, fields...)
	} else {
		mylogger.Warn(ctx, h.logger, msg, fields...)
	}

	return writeError(c, err)
}
