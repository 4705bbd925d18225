package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/internal/repository"
	"github.com/namoruso/inventory/internal/service"
	"github.com/namoruso/inventory/internal/stock"
	generalDomain "github.com/namoruso/inventory/pkg/domain"
	"github.com/namoruso/inventory/pkg/kafka"
	"github.com/namoruso/inventory/pkg/mylogger"
	"github.com/namoruso/inventory/pkg/outbox/utils"
	"go.uber.org/zap"
)

var errMalformedCommand = errors.New("malformed command")

type Consumer struct {
	service service.InventoryService
	pool    *pgxpool.Pool
	logger  *zap.Logger
}

func NewConsumer(service service.InventoryService, pool *pgxpool.Pool, logger *zap.Logger) *Consumer {
	return &Consumer{
		service: service,
		pool:    pool,
		logger:  logger,
	}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, brokers []string, groupID, topic string, opts ...kafka.ConsumerOption) error {
	consumerGroup := kafka.NewConsumerGroup(
		brokers,
		groupID,
		[]string{topic},
		c.processMessage,
		c.logger,
		opts...,
	)

	return consumerGroup.Run(ctx)
}

func (c *Consumer) processMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	mylogger.Info(
		ctx,
		c.logger,
		"Processing message",
		zap.String("topic", msg.Topic),
		zap.Int32("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)

	envelope, err := generalDomain.DecodeEnvelope(msg.Value)
	if err != nil {
		mylogger.Error(ctx, c.logger, "Error unmarshalling wrapper, dropping message", zap.Error(err))
		return nil
	}

	switch envelope.Event {
	case domain.EventStockAdjustmentRequested:
		cmd, err := decodeAdjustment(envelope.Payload)
		if err != nil {
			mylogger.Error(ctx, c.logger, "Invalid stock adjustment command, dropping message", zap.Error(err))
			return nil
		}

		return utils.ProcessWithDeduplication(ctx, c.pool, c.logger, eventKey(msg), func(ctx context.Context) error {
			return c.applyAdjustment(ctx, cmd)
		})
	default:
		mylogger.Warn(ctx, c.logger, "Ignored event type", zap.String("event_type", envelope.Event))
	}

	return nil
}

func decodeAdjustment(payload json.RawMessage) (*domain.StockAdjustmentRequestedEvent, error) {
	var cmd domain.StockAdjustmentRequestedEvent
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedCommand, err)
	}

	if cmd.ProductID <= 0 {
		return nil, fmt.Errorf("%w: product_id must be positive", errMalformedCommand)
	}

	return &cmd, nil
}

// applyAdjustment runs one command through the service. Rejections are final
// and only logged; any other error is returned so the message is retried.
func (c *Consumer) applyAdjustment(ctx context.Context, cmd *domain.StockAdjustmentRequestedEvent) error {
	change, err := c.service.AdjustStock(ctx, cmd.ProductID, cmd.Direction, cmd.Quantity)
	if err != nil {
		if isFinal(err) {
			mylogger.Warn(
				ctx,
				c.logger,
				"Stock adjustment command rejected",
				zap.Int64("product_id", cmd.ProductID),
				zap.String("direction", cmd.Direction),
				zap.Int64("quantity", cmd.Quantity),
				zap.Error(err),
			)

			return nil
		}

		return err
	}

	mylogger.Info(
		ctx,
		c.logger,
		"Stock adjustment command applied",
		zap.Int64("product_id", change.ID),
		zap.Int64("stock", change.Stock),
	)

	return nil
}

func isFinal(err error) bool {
	return errors.Is(err, repository.ErrProductNotFound) ||
		errors.Is(err, stock.ErrUnknownDirection) ||
		errors.Is(err, stock.ErrNegativeDelta) ||
		errors.Is(err, stock.ErrMaximumExceeded) ||
		errors.Is(err, stock.ErrInsufficientStock) ||
		errors.Is(err, repository.ErrBoundsViolation)
}

// eventKey prefers the producer's message id and falls back to the message
// coordinates.
func eventKey(msg *sarama.ConsumerMessage) string {
	if id := kafka.Header(msg, kafka.MessageIDHeader); id != "" {
		return id
	}

	return fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
}
