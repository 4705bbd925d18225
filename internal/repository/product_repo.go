package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/pkg/mylogger"
	outboxDomain "github.com/namoruso/inventory/pkg/outbox/domain"
	"github.com/namoruso/inventory/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StockFunc computes the new stock from the locked current row.
type StockFunc func(current *domain.Product) (int64, error)

type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.CreatedProduct, error)
	Update(ctx context.Context, product *domain.Product) (*domain.Product, error)
	AdjustStock(ctx context.Context, id int64, compute StockFunc) (*domain.StockChange, error)
	DeleteByID(ctx context.Context, id int64) error
}

const productColumns = `id, name, sku, stock, minimum, maximum, created_at, updated_at, status`

type productRepo struct {
	pool        *pgxpool.Pool
	outboxRepo  worker.OutboxRepository
	eventsTopic string
	tracer      trace.Tracer
	logger      *zap.Logger
}

// NewProductRepository writes every mutation together with its outbox event
// in one transaction.
func NewProductRepository(
	pool *pgxpool.Pool,
	outboxRepo worker.OutboxRepository,
	eventsTopic string,
	logger *zap.Logger,
) ProductRepository {
	return &productRepo{
		pool:        pool,
		outboxRepo:  outboxRepo,
		eventsTopic: eventsTopic,
		tracer:      otel.Tracer("inventory/product_repo"),
		logger:      logger,
	}
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	query := `SELECT ` + productColumns + ` FROM inventory WHERE id = $1`

	product, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error get by id", zap.Int64("id", id), zap.Error(err))

		return nil, fmt.Errorf("error getting product: %w", mapError(err))
	}

	return product, nil
}

func (r *productRepo) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.GetBySKU")
	defer span.End()

	span.SetAttributes(attribute.String("sku", sku))

	query := `SELECT ` + productColumns + ` FROM inventory WHERE sku = $1`

	product, err := scanProduct(r.pool.QueryRow(ctx, query, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error get by sku", zap.String("sku", sku), zap.Error(err))

		return nil, fmt.Errorf("error getting product by sku: %w", mapError(err))
	}

	return product, nil
}

func (r *productRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.ListActive")
	defer span.End()

	query := `SELECT ` + productColumns + ` FROM inventory WHERE status ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error listing products", zap.Error(err))

		return nil, fmt.Errorf("error selecting products: %w", mapError(err))
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			span.RecordError(err)
			mylogger.Error(ctx, r.logger, "Failed to scan rows", zap.Error(err))

			return nil, fmt.Errorf("error scanning rows: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Rows iteration error", zap.Error(err))

		return nil, fmt.Errorf("rows iteration error: %w", mapError(err))
	}

	span.SetAttributes(attribute.Int("result_count", len(products)))

	return products, nil
}

func (r *productRepo) Create(ctx context.Context, product *domain.Product) (*domain.CreatedProduct, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Create")
	defer span.End()

	span.SetAttributes(attribute.String("name", product.Name))

	var created *domain.CreatedProduct
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO inventory (name, sku, stock, minimum, maximum, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			product.Name,
			product.SKU,
			product.Stock,
			product.Minimum,
			product.Maximum,
			product.Active,
		).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return err
		}

		created = &domain.CreatedProduct{ID: product.ID, Name: product.Name, SKU: product.SKU}

		return r.saveEvent(ctx, tx, product.ID, domain.EventProductCreated, domain.ProductCreatedEvent{
			ProductID: product.ID,
			Name:      product.Name,
			SKU:       product.SKU,
			Stock:     product.Stock,
			Minimum:   product.Minimum,
			Maximum:   product.Maximum,
			Active:    product.Active,
		})
	})
	if err != nil {
		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Error creating product", zap.String("name", product.Name), zap.Error(err))

		return nil, fmt.Errorf("error creating product: %w", mapError(err))
	}

	return created, nil
}

// Update replaces name, bounds and status. A nil SKU keeps the stored one.
func (r *productRepo) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", product.ID))

	var updated *domain.Product
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE inventory
			SET name = $1,
				sku = COALESCE($2, sku),
				stock = $3,
				minimum = $4,
				maximum = $5,
				status = $6,
				updated_at = NOW()
			WHERE id = $7
			RETURNING ` + productColumns

		var err error
		updated, err = scanProduct(tx.QueryRow(
			ctx,
			query,
			product.Name,
			product.SKU,
			product.Stock,
			product.Minimum,
			product.Maximum,
			product.Active,
			product.ID,
		))
		if err != nil {
			return err
		}

		return r.saveEvent(ctx, tx, updated.ID, domain.EventProductUpdated, domain.ProductUpdatedEvent{
			ProductID: updated.ID,
			Name:      updated.Name,
			Stock:     updated.Stock,
			Minimum:   updated.Minimum,
			Maximum:   updated.Maximum,
			Active:    updated.Active,
			UpdatedAt: updated.UpdatedAt,
		})
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}

		span.RecordError(err)
		mylogger.Warn(ctx, r.logger, "Failed to update product", zap.Int64("id", product.ID), zap.Error(err))

		return nil, fmt.Errorf("error updating product: %w", mapError(err))
	}

	return updated, nil
}

// AdjustStock locks the row, lets compute derive the new stock and writes it
// back in the same transaction. Errors from compute come back as *RejectedError.
func (r *productRepo) AdjustStock(ctx context.Context, id int64, compute StockFunc) (*domain.StockChange, error) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.AdjustStock")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	var change *domain.StockChange
	var rejection error

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		selectQuery := `SELECT ` + productColumns + ` FROM inventory WHERE id = $1 FOR UPDATE`

		current, err := scanProduct(tx.QueryRow(ctx, selectQuery, id))
		if err != nil {
			return err
		}

		newStock, err := compute(current)
		if err != nil {
			rejection = err
			return err
		}

		updateQuery := `
			UPDATE inventory
			SET stock = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING id, name, updated_at
		`

		change = &domain.StockChange{PreviousStock: current.Stock, Stock: newStock}
		if err := tx.QueryRow(ctx, updateQuery, newStock, id).
			Scan(&change.ID, &change.Name, &change.UpdatedAt); err != nil {
			return err
		}

		return r.saveEvent(ctx, tx, id, domain.EventStockAdjusted, domain.StockAdjustedEvent{
			ProductID:     id,
			PreviousStock: change.PreviousStock,
			Stock:         change.Stock,
			Delta:         change.Stock - change.PreviousStock,
			AdjustedAt:    change.UpdatedAt,
		})
	})

	switch {
	case err == nil:
		span.SetAttributes(
			attribute.Int64("previous_stock", change.PreviousStock),
			attribute.Int64("stock", change.Stock),
		)
		return change, nil
	case rejection != nil:
		return nil, &RejectedError{Err: rejection}
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrProductNotFound
	default:
		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error adjusting stock", zap.Int64("id", id), zap.Error(err))

		return nil, fmt.Errorf("error adjusting stock for product %d: %w", id, mapError(err))
	}
}

func (r *productRepo) DeleteByID(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "ProductRepository.DeleteByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("id", id))

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		commandTag, err := tx.Exec(ctx, `DELETE FROM inventory WHERE id = $1`, id)
		if err != nil {
			return err
		}

		if commandTag.RowsAffected() == 0 {
			return ErrProductNotFound
		}

		return r.saveEvent(ctx, tx, id, domain.EventProductDeleted, domain.ProductDeletedEvent{
			ProductID: id,
			DeletedAt: time.Now().UTC(),
		})
	})
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return err
		}

		span.RecordError(err)
		mylogger.Error(ctx, r.logger, "Error deleting product by id", zap.Int64("id", id), zap.Error(err))

		return fmt.Errorf("error deleting product by id: %w", mapError(err))
	}

	return nil
}

func (r *productRepo) saveEvent(ctx context.Context, tx pgx.Tx, id int64, eventType string, payload any) error {
	event, err := outboxDomain.NewOutboxEvent(
		r.eventsTopic,
		domain.AggregateInventory,
		strconv.FormatInt(id, 10),
		eventType,
		payload,
	)
	if err != nil {
		return fmt.Errorf("event payload marshal error: %w", err)
	}

	return r.outboxRepo.SaveOutboxEvent(ctx, tx, event)
}

func (r *productRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(cleanupCtx, r.logger, "Error rolling back transaction", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.SKU,
		&p.Stock,
		&p.Minimum,
		&p.Maximum,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Active,
	); err != nil {
		return nil, err
	}

	return &p, nil
}

// mapError translates driver errors into repository sentinels. The original
// error stays in the chain for logging.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrDuplicateSKU, err)
		case "23514":
			return fmt.Errorf("%w: %w", ErrBoundsViolation, err)
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return err
}
