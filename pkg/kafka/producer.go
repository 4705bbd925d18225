package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/namoruso/inventory/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// MessageIDHeader carries a unique id per produced message; consumers use it
// for idempotent processing.
const MessageIDHeader = "message_id"

type Producer interface {
	ProduceMessage(ctx context.Context, topic, key string, message interface{}) error
	Close() error
}

type producer struct {
	syncProducer sarama.SyncProducer
	logger       *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) (Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	p, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("error creating producer: %w", err)
	}

	return &producer{syncProducer: p, logger: logger}, nil
}

func (p *producer) ProduceMessage(ctx context.Context, topic, key string, message interface{}) error {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(jsonMsg),
		Headers: messageHeaders(ctx),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.syncProducer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}

	mylogger.Debug(
		ctx,
		p.logger,
		"Message sent",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *producer) Close() error {
	return p.syncProducer.Close()
}

func messageHeaders(ctx context.Context) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]sarama.RecordHeader, 0, len(carrier)+1)
	headers = append(headers, sarama.RecordHeader{
		Key:   []byte(MessageIDHeader),
		Value: []byte(uuid.NewString()),
	})

	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{
			Key:   []byte(k),
			Value: []byte(v),
		})
	}

	return headers
}

// Header returns the value of the named header, or "" when absent.
func Header(msg *sarama.ConsumerMessage, name string) string {
	for _, header := range msg.Headers {
		if header != nil && string(header.Key) == name {
			return string(header.Value)
		}
	}

	return ""
}
