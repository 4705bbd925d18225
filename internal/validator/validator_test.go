package validator

import (
	"strings"
	"testing"

	"github.com/namoruso/inventory/internal/domain"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func TestValidatePayload_Scenarios(t *testing.T) {
	v := New()

	bounds, err := v.ValidatePayload(&domain.InventoryPayload{Name: "Widget", Minimum: i64(5), Maximum: i64(20)})
	require.NoError(t, err)
	require.Equal(t, [3]int64{5, 20, 5}, bounds.Triple())

	_, err = v.ValidatePayload(&domain.InventoryPayload{Name: "Gadget", Stock: i64(3), Minimum: i64(5), Maximum: i64(10)})
	require.ErrorIs(t, err, ErrStockBelowMinimum)
	require.ErrorIs(t, err, ErrOutOfBounds)

	_, err = v.ValidatePayload(&domain.InventoryPayload{Name: "Bolt", Minimum: i64(0), Maximum: i64(0)})
	require.ErrorIs(t, err, ErrNonPositiveMaximum)
}

func TestValidatePayload_Defaults(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		payload domain.InventoryPayload
		want    [3]int64
	}{
		{
			name:    "everything missing",
			payload: domain.InventoryPayload{Name: "Nut"},
			want:    [3]int64{0, 1, 0},
		},
		{
			name:    "only minimum",
			payload: domain.InventoryPayload{Name: "Nut", Minimum: i64(4)},
			want:    [3]int64{4, 5, 4},
		},
		{
			name:    "only stock",
			payload: domain.InventoryPayload{Name: "Nut", Stock: i64(1)},
			want:    [3]int64{1, 1, 0},
		},
		{
			name:    "only maximum",
			payload: domain.InventoryPayload{Name: "Nut", Maximum: i64(50)},
			want:    [3]int64{0, 50, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bounds, err := v.ValidatePayload(&tt.payload)
			require.NoError(t, err)
			require.Equal(t, tt.want, bounds.Triple())
		})
	}
}

func TestValidatePayload_CheckOrder(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		payload domain.InventoryPayload
		want    error
	}{
		{
			name:    "minimum above maximum wins over stock checks",
			payload: domain.InventoryPayload{Name: "x", Stock: i64(50), Minimum: i64(10), Maximum: i64(5)},
			want:    ErrMinimumExceedsMaximum,
		},
		{
			name:    "stock above maximum",
			payload: domain.InventoryPayload{Name: "x", Stock: i64(11), Minimum: i64(1), Maximum: i64(10)},
			want:    ErrStockAboveMaximum,
		},
		{
			name:    "stock above defaulted maximum",
			payload: domain.InventoryPayload{Name: "x", Stock: i64(3)},
			want:    ErrStockAboveMaximum,
		},
		{
			name:    "bounds checked before maximum sign",
			payload: domain.InventoryPayload{Name: "x", Stock: i64(1), Minimum: i64(0), Maximum: i64(-1)},
			want:    ErrMinimumExceedsMaximum,
		},
		{
			name:    "negative defaulted maximum",
			payload: domain.InventoryPayload{Name: "x", Minimum: i64(-3)},
			want:    ErrNonPositiveMaximum,
		},
		{
			name:    "negative minimum",
			payload: domain.InventoryPayload{Name: "x", Minimum: i64(-3), Maximum: i64(10)},
			want:    ErrNegativeMinimum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidatePayload(&tt.payload)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidatePayload_Shape(t *testing.T) {
	v := New()

	_, err := v.ValidatePayload(nil)
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = v.ValidatePayload(&domain.InventoryPayload{})
	require.ErrorIs(t, err, ErrInvalidPayload)

	var payloadErr *PayloadError
	require.ErrorAs(t, err, &payloadErr)
	require.Equal(t, "name is required", payloadErr.Fields["name"])

	_, err = v.ValidatePayload(&domain.InventoryPayload{Name: "   "})
	require.ErrorAs(t, err, &payloadErr)
	require.Equal(t, "name must not be blank", payloadErr.Fields["name"])

	longSKU := strings.Repeat("A", 65)
	_, err = v.ValidatePayload(&domain.InventoryPayload{Name: "ok", SKU: &longSKU})
	require.ErrorAs(t, err, &payloadErr)
	require.Equal(t, "sku must be at most 64", payloadErr.Fields["sku"])
}

// Every explicit triple in a small grid is accepted iff the bound invariant
// holds, and accepted triples validate to themselves.
func TestValidatePayload_InvariantGrid(t *testing.T) {
	v := New()

	for minimum := int64(-2); minimum <= 6; minimum++ {
		for stock := int64(-2); stock <= 6; stock++ {
			for maximum := int64(-2); maximum <= 6; maximum++ {
				payload := &domain.InventoryPayload{
					Name:    "grid",
					Stock:   i64(stock),
					Minimum: i64(minimum),
					Maximum: i64(maximum),
				}

				bounds, err := v.ValidatePayload(payload)
				holds := 0 <= minimum && minimum <= stock && stock <= maximum && maximum > 0

				if !holds {
					require.Error(t, err, "triple %d/%d/%d", stock, maximum, minimum)
					continue
				}

				require.NoError(t, err)
				require.Equal(t, [3]int64{stock, maximum, minimum}, bounds.Triple())

				again, err := v.ValidatePayload(&domain.InventoryPayload{
					Name:    "grid",
					Stock:   i64(bounds.Stock),
					Minimum: i64(bounds.Minimum),
					Maximum: i64(bounds.Maximum),
				})
				require.NoError(t, err)
				require.Equal(t, bounds, again)
			}
		}
	}
}
