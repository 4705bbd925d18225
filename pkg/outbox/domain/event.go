package domain

import (
	"encoding/json"
	"time"

	generalDomain "github.com/namoruso/inventory/pkg/domain"
)

type OutboxEvent struct {
	Id            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	Headers       json.RawMessage `db:"headers"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
	Attempts      int64           `db:"attempts"`
	LastError     *string         `db:"last_error"`
	Topic         string          `db:"topic"`
}

// NewOutboxEvent wraps payload in the topic envelope.
func NewOutboxEvent(topic, aggregateType, aggregateID, eventType string, payload any) (*OutboxEvent, error) {
	data, err := generalDomain.NewEnvelope(eventType, payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		Topic:         topic,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}, nil
}
