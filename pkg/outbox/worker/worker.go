package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/namoruso/inventory/pkg/mylogger"
	"github.com/namoruso/inventory/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize, maxAttempts int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error
}

type KafkaProducer interface {
	ProduceMessage(ctx context.Context, topic, key string, message interface{}) error
}

type Config struct {
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   50,
		Interval:    500 * time.Millisecond,
		MaxAttempts: 10,
	}
}

type OutboxProcessor struct {
	pool          *pgxpool.Pool
	repo          OutboxRepository
	kafkaProducer KafkaProducer
	logger        *zap.Logger
	cfg           Config
	tracer        trace.Tracer
}

func NewOutboxProcessor(
	pool *pgxpool.Pool,
	repo OutboxRepository,
	producer KafkaProducer,
	logger *zap.Logger,
	cfg Config,
) *OutboxProcessor {
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaults.MaxAttempts
	}

	return &OutboxProcessor{
		pool:          pool,
		repo:          repo,
		kafkaProducer: producer,
		logger:        logger,
		cfg:           cfg,
		tracer:        otel.Tracer("inventory/outbox_worker"),
	}
}

// Start polls the outbox until ctx is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(
		ctx,
		p.logger,
		"Starting outbox processor",
		zap.Int("batch_size", p.cfg.BatchSize),
		zap.Duration("interval", p.cfg.Interval),
	)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, p.logger, "Outbox processor stopping")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				mylogger.Error(ctx, p.logger, "Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessBatch publishes one batch and returns how many events were published.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.ProcessBatch")
	defer span.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				cleanupCtx,
				p.logger,
				"Outbox worker failed to rollback transaction",
				zap.Error(err),
			)
		}
	}()

	events, err := p.repo.GetUnpublishedEvents(ctx, tx, p.cfg.BatchSize, p.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}

	if len(events) == 0 {
		return 0, nil
	}

	published := 0
	for _, event := range events {
		err := p.kafkaProducer.ProduceMessage(ctx, event.Topic, event.AggregateID, event.Payload)
		if err != nil {
			mylogger.Warn(
				ctx,
				p.logger,
				"Outbox worker produce message failed",
				zap.Int64("id", event.Id),
				zap.Int64("attempts", event.Attempts+1),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, tx, event.Id, err.Error()); dbErr != nil {
				return published, fmt.Errorf("error marking event %d failed: %w", event.Id, dbErr)
			}
			continue
		}

		if err := p.repo.MarkEventPublished(ctx, tx, event.Id); err != nil {
			return published, fmt.Errorf("error marking event %d published: %w", event.Id, err)
		}

		published++
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("error committing outbox batch: %w", err)
	}

	span.SetAttributes(attribute.Int("published", published))
	mylogger.Debug(ctx, p.logger, "Outbox batch processed", zap.Int("published", published), zap.Int("total", len(events)))

	return published, nil
}
