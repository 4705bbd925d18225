package repository

import (
	"context"
	"errors"

	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/pkg/config"
	"github.com/namoruso/inventory/pkg/utils"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type breakerRepo struct {
	next ProductRepository
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerRepository trips on store failures only. Not-found, duplicate SKU
// and stock rejections count as successful calls.
func NewBreakerRepository(next ProductRepository, cfg config.Breaker, logger *zap.Logger) ProductRepository {
	settings := gobreaker.Settings{
		Name:        "InventoryStore",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: isStoreHealthy,
	}

	return &breakerRepo{
		next: next,
		cb:   gobreaker.NewCircuitBreaker(settings),
	}
}

func isStoreHealthy(err error) bool {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return isRequestOutcome(err)
	}
}

// isRequestOutcome reports errors that describe the request, not the store.
func isRequestOutcome(err error) bool {
	var rejected *RejectedError

	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrDuplicateSKU) ||
		errors.Is(err, ErrBoundsViolation) ||
		errors.As(err, &rejected)
}

func (r *breakerRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return execute(r.cb, func() (*domain.Product, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *breakerRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return execute(r.cb, func() (*domain.Product, error) {
		return r.next.GetBySKU(ctx, sku)
	})
}

func (r *breakerRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	return execute(r.cb, func() ([]domain.Product, error) {
		return r.next.ListActive(ctx)
	})
}

func (r *breakerRepo) Create(ctx context.Context, product *domain.Product) (*domain.CreatedProduct, error) {
	return execute(r.cb, func() (*domain.CreatedProduct, error) {
		return r.next.Create(ctx, product)
	})
}

func (r *breakerRepo) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	return execute(r.cb, func() (*domain.Product, error) {
		return r.next.Update(ctx, product)
	})
}

func (r *breakerRepo) AdjustStock(ctx context.Context, id int64, compute StockFunc) (*domain.StockChange, error) {
	return execute(r.cb, func() (*domain.StockChange, error) {
		return r.next.AdjustStock(ctx, id, compute)
	})
}

func (r *breakerRepo) DeleteByID(ctx context.Context, id int64) error {
	_, err := execute(r.cb, func() (struct{}, error) {
		return struct{}{}, r.next.DeleteByID(ctx, id)
	})
	return err
}

func execute[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := utils.ExecuteWithBreaker(cb, fn)
	if utils.IsBreakerRejection(err) {
		var zero T
		return zero, errors.Join(ErrUnavailable, err)
	}

	return res, err
}
