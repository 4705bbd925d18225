package domain

import "time"

const (
	EventProductCreated           = "ProductCreated"
	EventProductUpdated           = "ProductUpdated"
	EventStockAdjusted            = "StockAdjusted"
	EventProductDeleted           = "ProductDeleted"
	EventStockAdjustmentRequested = "StockAdjustmentRequested"

	AggregateInventory = "Inventory"
)

type ProductCreatedEvent struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	SKU       *string `json:"sku,omitempty"`
	Stock     int64   `json:"stock"`
	Minimum   int64   `json:"minimum"`
	Maximum   int64   `json:"maximum"`
	Active    bool    `json:"status"`
}

type ProductUpdatedEvent struct {
	ProductID int64     `json:"product_id"`
	Name      string    `json:"name"`
	Stock     int64     `json:"stock"`
	Minimum   int64     `json:"minimum"`
	Maximum   int64     `json:"maximum"`
	Active    bool      `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StockAdjustedEvent carries the signed change; Delta is Stock - PreviousStock.
type StockAdjustedEvent struct {
	ProductID     int64     `json:"product_id"`
	PreviousStock int64     `json:"previous_stock"`
	Stock         int64     `json:"stock"`
	Delta         int64     `json:"delta"`
	AdjustedAt    time.Time `json:"adjusted_at"`
}

type ProductDeletedEvent struct {
	ProductID int64     `json:"product_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// StockAdjustmentRequestedEvent arrives on the commands topic.
type StockAdjustmentRequestedEvent struct {
	ProductID int64  `json:"product_id"`
	Direction string `json:"direction"`
	Quantity  int64  `json:"quantity"`
}
