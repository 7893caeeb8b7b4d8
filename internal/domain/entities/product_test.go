package entities

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_UnmarshalAPIShape(t *testing.T) {
	payload := `{
		"_id": "66a1f0",
		"slug": "silver-anklet",
		"name": "Silver Anklet",
		"images": ["https://cdn.example.com/a.jpg", {"url": "https://cdn.example.com/b.jpg"}],
		"price": 2499,
		"sale_price": "1999.50",
		"tags": ["gift"],
		"createdAt": "2024-03-01T10:00:00.000Z"
	}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(payload), &p))

	assert.Equal(t, "66a1f0", p.ID)
	assert.Equal(t, ImageList{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, p.Images)
	assert.True(t, p.EffectivePrice().Equal(decimal.RequireFromString("1999.50")))
	assert.True(t, p.OnSale())
	assert.Equal(t, 2024, p.CreatedAt.Year())
}

func TestProduct_EffectivePrice(t *testing.T) {
	price := decimal.NewFromInt(1000)

	tests := []struct {
		name string
		sale decimal.NullDecimal
		want decimal.Decimal
	}{
		{name: "no sale price", sale: decimal.NullDecimal{}, want: price},
		{name: "lower sale price", sale: decimal.NewNullDecimal(decimal.NewFromInt(800)), want: decimal.NewFromInt(800)},
		{name: "zero sale price", sale: decimal.NewNullDecimal(decimal.Zero), want: price},
		{name: "sale above price", sale: decimal.NewNullDecimal(decimal.NewFromInt(1200)), want: price},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Price: price, SalePrice: tt.sale}
			assert.True(t, p.EffectivePrice().Equal(tt.want), "got %s", p.EffectivePrice())
		})
	}
}
