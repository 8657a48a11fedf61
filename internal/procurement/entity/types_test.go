package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantityArithmeticUsesColumnScale(t *testing.T) {
	a, b := 0.3, 0.6
	assert.NotEqual(t, 0.9, a+b, "plain float sums drift")
	assert.Equal(t, 0.9, AddQuantity(a, b))

	cases := []struct {
		name      string
		got, want float64
		reached   bool
	}{
		{"float drift below", a + b, 0.9, true},
		{"exact", 2, 2, true},
		{"over", 2.5, 2, true},
		{"one unit short", 0.899, 0.9, false},
		{"sub-scale noise", 0.8996, 0.9, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.reached, QuantityReached(tc.got, tc.want))
		})
	}

	item := BomItem{Quantity: 0.9, ReceivedQuantity: a + b}
	assert.True(t, item.IsFullyReceived())
	poItem := PurchaseOrderItem{Quantity: 0.9, ReceivedQuantity: a + b}
	assert.True(t, poItem.IsFullyReceived())

	asset := Asset{Quantity: 1, TransferredQuantity: 0.7}
	assert.Equal(t, 0.3, asset.AvailableQuantity())
}
