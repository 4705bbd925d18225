package domain

import "time"

type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	SKU       *string   `db:"sku" json:"sku"`
	Stock     int64     `db:"stock" json:"stock"`
	Minimum   int64     `db:"minimum" json:"minimun"`
	Maximum   int64     `db:"maximum" json:"maximun"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	Active    bool      `db:"status" json:"status"`
}

// InventoryPayload is an untrusted create/update request body. The bound keys
// keep the spelling existing clients send.
type InventoryPayload struct {
	Name    string  `json:"name" validate:"required,notblank,max=255"`
	SKU     *string `json:"sku" validate:"omitempty,max=64"`
	Stock   *int64  `json:"stock"`
	Minimum *int64  `json:"minimun"`
	Maximum *int64  `json:"maximun"`
	Status  *bool   `json:"status"`
}

// IsActive reports the requested status; absent means active.
func (p *InventoryPayload) IsActive() bool {
	return p.Status == nil || *p.Status
}

// Bounds is the canonical stock/maximum/minimum triple derived from a payload.
type Bounds struct {
	Stock   int64
	Maximum int64
	Minimum int64
}

// Triple returns [stock, maximum, minimum].
func (b Bounds) Triple() [3]int64 {
	return [3]int64{b.Stock, b.Maximum, b.Minimum}
}

type CreatedProduct struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	SKU  *string `json:"sku"`
}

// StockChange is the result of an accepted stock adjustment.
type StockChange struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	PreviousStock int64     `json:"previous_stock"`
	Stock         int64     `json:"stock"`
	UpdatedAt     time.Time `json:"updated_at"`
}
