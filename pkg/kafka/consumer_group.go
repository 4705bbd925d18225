package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/namoruso/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

type ConsumerGroup struct {
	brokers     []string
	groupID     string
	topics      []string
	handlerFunc HandlerFunc
	logger      *zap.Logger

	clientID         string
	initialOffset    int64
	retryBackoff     time.Duration
	maxRetryBackoff  time.Duration
	reconnectBackoff time.Duration
}

type ConsumerOption func(*ConsumerGroup)

// WithClientID names the connection on the broker side.
func WithClientID(id string) ConsumerOption {
	return func(c *ConsumerGroup) {
		c.clientID = id
	}
}

// WithInitialOffset sets where a group without committed offsets starts:
// sarama.OffsetOldest (default) or sarama.OffsetNewest.
func WithInitialOffset(offset int64) ConsumerOption {
	return func(c *ConsumerGroup) {
		c.initialOffset = offset
	}
}

// WithRetryBackoff sets the delay before a failed message is handed to the
// handler again. The delay doubles up to maxDelay.
func WithRetryBackoff(initial, maxDelay time.Duration) ConsumerOption {
	return func(c *ConsumerGroup) {
		c.retryBackoff = initial
		c.maxRetryBackoff = maxDelay
	}
}

// WithReconnectBackoff sets the pause after a failed consume session.
func WithReconnectBackoff(d time.Duration) ConsumerOption {
	return func(c *ConsumerGroup) {
		c.reconnectBackoff = d
	}
}

func NewConsumerGroup(
	brokers []string,
	groupID string,
	topics []string,
	handlerFunc HandlerFunc,
	logger *zap.Logger,
	opts ...ConsumerOption,
) *ConsumerGroup {
	c := &ConsumerGroup{
		brokers:       brokers,
		groupID:       groupID,
		topics:        topics,
		handlerFunc:   handlerFunc,
		logger:           logger,
		initialOffset:    sarama.OffsetOldest,
		retryBackoff:     500 * time.Millisecond,
		maxRetryBackoff:  30 * time.Second,
		reconnectBackoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *ConsumerGroup) saramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	if c.clientID != "" {
		config.ClientID = c.clientID
	}
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = c.initialOffset
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	return config
}

// Run joins the group and dispatches messages until ctx is cancelled. A
// failed message is retried in place, so its offset is never committed
// before the handler returns nil.
func (c *ConsumerGroup) Run(ctx context.Context) error {
	group, err := sarama.NewConsumerGroup(c.brokers, c.groupID, c.saramaConfig())
	if err != nil {
		return fmt.Errorf("error creating consumer group %s: %w", c.groupID, err)
	}

	defer func() {
		if err := group.Close(); err != nil {
			mylogger.Warn(ctx, c.logger, "Error closing consumer group", zap.Error(err))
		}
	}()

	go func() {
		for err := range group.Errors() {
			mylogger.Warn(ctx, c.logger, "Consumer group error", zap.Error(err))
		}
	}()

	consumer := &saramaHandler{
		handler:         c.handlerFunc,
		logger:          c.logger,
		retryBackoff:    c.retryBackoff,
		maxRetryBackoff: c.maxRetryBackoff,
	}

	c.consumeLoop(ctx, func(ctx context.Context) error {
		return group.Consume(ctx, c.topics, consumer)
	})

	return nil
}

func (c *ConsumerGroup) consumeLoop(ctx context.Context, consume func(ctx context.Context) error) {
	for {
		err := consume(ctx)
		if ctx.Err() != nil {
			mylogger.Info(ctx, c.logger, "Context cancelled, shutting down consumer")
			return
		}

		if err == nil || errors.Is(err, sarama.ErrClosedConsumerGroup) {
			continue
		}

		mylogger.Error(
			ctx,
			c.logger,
			"Error consuming in consumer loop",
			zap.Duration("retry_in", c.reconnectBackoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			mylogger.Info(ctx, c.logger, "Context cancelled, shutting down consumer")
			return
		case <-time.After(c.reconnectBackoff):
		}
	}
}

type saramaHandler struct {
	handler         HandlerFunc
	logger          *zap.Logger
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

func (h *saramaHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *saramaHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *saramaHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.handle(session, msg) {
				return nil
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle keeps calling the handler until it succeeds or the session ends.
// Offsets are cumulative, so moving past a failed message would commit it.
func (h *saramaHandler) handle(session sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) bool {
	backoff := h.retryBackoff

	for attempt := 1; ; attempt++ {
		ctx, span := h.extractTracing(session.Context(), msg)

		err := h.handler(ctx, msg)
		if err == nil {
			session.MarkMessage(msg, "")
			span.End()
			return true
		}

		span.RecordError(err)
		span.End()

		mylogger.Error(
			ctx,
			h.logger,
			"Failed to process message",
			zap.String("topic", msg.Topic),
			zap.Int32("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", backoff),
			zap.Error(err),
		)

		select {
		case <-session.Context().Done():
			return false
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, h.maxRetryBackoff)
	}
}

func (h *saramaHandler) extractTracing(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		if header == nil {
			continue
		}
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	return otel.Tracer("pkg/kafka/consumer").Start(ctx, "kafka_process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination", msg.Topic),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
}
