package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/namoruso/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	actionAttempts = 3
	retryDelay     = 500 * time.Millisecond
)

// ProcessWithDeduplication runs action at most once per eventKey. The key is
// recorded in processed_events and committed only after action succeeds, so a
// failed action leaves the event free to be redelivered.
func ProcessWithDeduplication(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger *zap.Logger,
	eventKey string,
	action func(ctx context.Context) error,
) error {
	span := trace.SpanFromContext(ctx)

	tx, err := pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error beginning dedup transaction: %w", err)
	}

	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(shutdownCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				shutdownCtx,
				logger,
				"Error rolling back transaction",
				zap.Error(err),
			)
		}
	}()

	query := `
		INSERT INTO processed_events (event_key)
		VALUES ($1)
	`

	if _, err := tx.Exec(ctx, query, eventKey); err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			mylogger.Info(
				ctx,
				logger,
				"Event already processed, skipping",
				zap.String("event_key", eventKey),
			)

			return nil
		}

		span.RecordError(err)
		return err
	}

	for i := 0; i < actionAttempts; i++ {
		err = action(ctx)
		if err == nil {
			break
		}

		if i < actionAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}

	if err != nil {
		mylogger.Error(ctx, logger, "Failed to process event after retries", zap.String("event_key", eventKey), zap.Error(err))

		return fmt.Errorf("failed to process event %s: %w", eventKey, err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		mylogger.Error(ctx, logger, "Failed to commit transaction", zap.Error(err))

		return fmt.Errorf("failed to commit dedup record: %w", err)
	}

	return nil
}
