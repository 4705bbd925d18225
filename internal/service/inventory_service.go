package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/internal/repository"
	"github.com/namoruso/inventory/internal/stock"
	"github.com/namoruso/inventory/pkg/mylogger"
	"go.uber.org/zap"
)

type InventoryService interface {
	Create(ctx context.Context, payload *domain.InventoryPayload) (*domain.CreatedProduct, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindBySKU(ctx context.Context, sku string) (*domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, id int64, payload *domain.InventoryPayload) (*domain.Product, error)
	AdjustStock(ctx context.Context, id int64, mode string, quantity int64) (*domain.StockChange, error)
	Delete(ctx context.Context, id int64) error
}

type PayloadValidator interface {
	ValidatePayload(payload *domain.InventoryPayload) (domain.Bounds, error)
}

type AdjustmentObserver interface {
	ObserveAdjustment(direction, outcome string)
}

// DirectionUnknown labels attempts whose mode did not parse.
const DirectionUnknown = "unknown"

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

type inventoryService struct {
	repo      repository.ProductRepository
	validator PayloadValidator
	observer  AdjustmentObserver
	logger    *zap.Logger
}

func NewInventoryService(
	repo repository.ProductRepository,
	validator PayloadValidator,
	observer AdjustmentObserver,
	logger *zap.Logger,
) InventoryService {
	return &inventoryService{
		repo:      repo,
		validator: validator,
		observer:  observer,
		logger:    logger,
	}
}

func (s *inventoryService) Create(ctx context.Context, payload *domain.InventoryPayload) (*domain.CreatedProduct, error) {
	bounds, err := s.validator.ValidatePayload(payload)
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Invalid inventory payload", zap.Error(err))
		return nil, err
	}

	created, err := s.repo.Create(ctx, &domain.Product{
		Name:    payload.Name,
		SKU:     payload.SKU,
		Stock:   bounds.Stock,
		Minimum: bounds.Minimum,
		Maximum: bounds.Maximum,
		Active:  payload.IsActive(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateSKU) {
			mylogger.Warn(ctx, s.logger, "Duplicate sku", zap.Stringp("sku", payload.SKU))
			return nil, err
		}

		mylogger.Error(ctx, s.logger, "create error", zap.Error(err))
		return nil, fmt.Errorf("error creating product: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Product created", zap.Int64("product_id", created.ID))

	return created, nil
}

// FindByID hides inactive records: they are reported as not found.
func (s *inventoryService) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(ctx, err, zap.Int64("product_id", id))
	}

	if !product.Active {
		mylogger.Debug(ctx, s.logger, "Inactive product requested", zap.Int64("product_id", id))
		return nil, repository.ErrProductNotFound
	}

	return product, nil
}

func (s *inventoryService) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	product, err := s.repo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, s.lookupError(ctx, err, zap.String("sku", sku))
	}

	if !product.Active {
		mylogger.Debug(ctx, s.logger, "Inactive product requested", zap.String("sku", sku))
		return nil, repository.ErrProductNotFound
	}

	return product, nil
}

func (s *inventoryService) ListActive(ctx context.Context) ([]domain.Product, error) {
	list, err := s.repo.ListActive(ctx)
	if err != nil {
		mylogger.Error(ctx, s.logger, "list error", zap.Error(err))
		return nil, fmt.Errorf("error listing products: %w", err)
	}

	return list, nil
}

// Update rewrites the whole record and may reactivate a soft-deleted one.
func (s *inventoryService) Update(ctx context.Context, id int64, payload *domain.InventoryPayload) (*domain.Product, error) {
	bounds, err := s.validator.ValidatePayload(payload)
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Invalid inventory payload", zap.Int64("product_id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.Update(ctx, &domain.Product{
		ID:      id,
		Name:    payload.Name,
		SKU:     payload.SKU,
		Stock:   bounds.Stock,
		Minimum: bounds.Minimum,
		Maximum: bounds.Maximum,
		Active:  payload.IsActive(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) || errors.Is(err, repository.ErrDuplicateSKU) {
			mylogger.Warn(ctx, s.logger, "Update rejected", zap.Int64("product_id", id), zap.Error(err))
			return nil, err
		}

		mylogger.Error(ctx, s.logger, "update error", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("error updating product: %w", err)
	}

	return updated, nil
}

// AdjustStock validates mode and quantity before touching the store, then
// applies the change under the repository's row lock.
func (s *inventoryService) AdjustStock(ctx context.Context, id int64, mode string, quantity int64) (*domain.StockChange, error) {
	dir, err := stock.ParseDirection(mode)
	if err != nil {
		s.observe(DirectionUnknown, OutcomeRejected)
		mylogger.Warn(ctx, s.logger, "Unknown adjustment direction", zap.String("mode", mode))
		return nil, err
	}

	if quantity < 0 {
		s.observe(string(dir), OutcomeRejected)
		return nil, stock.ErrNegativeDelta
	}

	change, err := s.repo.AdjustStock(ctx, id, func(current *domain.Product) (int64, error) {
		return stock.ComputeAdjustment(current, dir, quantity)
	})
	if err != nil {
		if errors.Is(err, stock.ErrProductInactive) {
			err = repository.ErrProductNotFound
		}

		if isRejection(err) {
			s.observe(string(dir), OutcomeRejected)
			mylogger.Warn(
				ctx,
				s.logger,
				"Stock adjustment rejected",
				zap.Int64("product_id", id),
				zap.String("direction", string(dir)),
				zap.Int64("quantity", quantity),
				zap.Error(err),
			)
			return nil, err
		}

		s.observe(string(dir), OutcomeFailed)
		mylogger.Error(ctx, s.logger, "Error adjusting stock", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("error adjusting stock: %w", err)
	}

	s.observe(string(dir), OutcomeAccepted)
	mylogger.Info(
		ctx,
		s.logger,
		"Stock adjusted",
		zap.Int64("product_id", id),
		zap.Int64("previous_stock", change.PreviousStock),
		zap.Int64("stock", change.Stock),
	)

	return change, nil
}

func (s *inventoryService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			mylogger.Warn(ctx, s.logger, "product not found", zap.Int64("product_id", id))
			return err
		}

		mylogger.Error(ctx, s.logger, "error deleting product", zap.Error(err))
		return fmt.Errorf("error deleting product: %w", err)
	}

	mylogger.Info(ctx, s.logger, "Product deleted", zap.Int64("product_id", id))

	return nil
}

func (s *inventoryService) lookupError(ctx context.Context, err error, field zap.Field) error {
	if errors.Is(err, repository.ErrProductNotFound) {
		mylogger.Debug(ctx, s.logger, "product not found", field)
		return err
	}

	mylogger.Error(ctx, s.logger, "error getting product", field, zap.Error(err))
	return fmt.Errorf("error getting product: %w", err)
}

func (s *inventoryService) observe(direction, outcome string) {
	if s.observer != nil {
		s.observer.ObserveAdjustment(direction, outcome)
	}
}

func isRejection(err error) bool {
	return errors.Is(err, repository.ErrProductNotFound) ||
		errors.Is(err, stock.ErrMaximumExceeded) ||
		errors.Is(err, stock.ErrInsufficientStock) ||
		errors.Is(err, stock.ErrNegativeDelta) ||
		errors.Is(err, stock.ErrUnknownDirection)
}
