package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/IBM/sarama"
	"github.com/namoruso/inventory/internal/domain"
	"github.com/namoruso/inventory/internal/repository"
	"github.com/namoruso/inventory/internal/service"
	"github.com/namoruso/inventory/internal/stock"
	"github.com/namoruso/inventory/pkg/kafka"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adjustingService struct {
	service.InventoryService

	err   error
	calls int
}

func (s *adjustingService) AdjustStock(_ context.Context, id int64, _ string, quantity int64) (*domain.StockChange, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}

	return &domain.StockChange{ID: id, Stock: quantity}, nil
}

func TestDecodeAdjustment(t *testing.T) {
	cmd, err := decodeAdjustment([]byte(`{"product_id":4,"direction":"decrease","quantity":2}`))
	require.NoError(t, err)
	require.Equal(t, &domain.StockAdjustmentRequestedEvent{ProductID: 4, Direction: "decrease", Quantity: 2}, cmd)

	_, err = decodeAdjustment([]byte(`{"product_id":"four"}`))
	require.ErrorIs(t, err, errMalformedCommand)

	_, err = decodeAdjustment([]byte(`{"direction":"increase","quantity":1}`))
	require.ErrorIs(t, err, errMalformedCommand)
}

func TestEventKey(t *testing.T) {
	msg := &sarama.ConsumerMessage{Topic: "inventory_commands", Partition: 2, Offset: 17}
	require.Equal(t, "inventory_commands-2-17", eventKey(msg))

	msg.Headers = []*sarama.RecordHeader{
		{Key: []byte("traceparent"), Value: []byte("00-abc")},
		{Key: []byte(kafka.MessageIDHeader), Value: []byte("4f1c")},
	}
	require.Equal(t, "4f1c", eventKey(msg))
}

func TestApplyAdjustment(t *testing.T) {
	cmd := &domain.StockAdjustmentRequestedEvent{ProductID: 1, Direction: "increase", Quantity: 3}

	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "accepted"},
		{name: "maximum exceeded", err: &repository.RejectedError{Err: stock.ErrMaximumExceeded}},
		{name: "insufficient stock", err: &repository.RejectedError{Err: stock.ErrInsufficientStock}},
		{name: "not found", err: repository.ErrProductNotFound},
		{name: "unknown direction", err: stock.ErrUnknownDirection},
		{name: "store down", err: fmt.Errorf("error adjusting stock: %w", repository.ErrUnavailable), wantErr: true},
		{name: "unexpected", err: errors.New("boom"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &adjustingService{err: tt.err}
			c := NewConsumer(svc, nil, zap.NewNop())

			err := c.applyAdjustment(context.Background(), cmd)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, 1, svc.calls)
		})
	}
}

func TestProcessMessage_DropsUndecodable(t *testing.T) {
	svc := &adjustingService{}
	c := NewConsumer(svc, nil, zap.NewNop())

	for _, value := range []string{
		`not json`,
		`{"event":"ProductCreated","payload":{}}`,
		`{"event":"StockAdjustmentRequested","payload":{"product_id":0}}`,
	} {
		err := c.processMessage(context.Background(), &sarama.ConsumerMessage{Topic: "inventory_commands", Value: []byte(value)})
		require.NoError(t, err, value)
	}

	require.Zero(t, svc.calls)
}
