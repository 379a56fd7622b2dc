package postgres

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-kart/internal/domain/cart"
)

func TestLinesJSON(t *testing.T) {
	lines := []cart.Line{
		{Name: `Caneta "azul"`, Quantity: 2, UnitPrice: decimal.RequireFromString("1.50")},
		{Name: "Café ☕", Quantity: 1, UnitPrice: decimal.RequireFromString("4")},
	}

	raw := encodeLines(lines)
	assert.JSONEq(t,
		`[{"name":"Caneta \"azul\"","quantity":2,"unit_price":"1.5"},{"name":"Café ☕","quantity":1,"unit_price":"4"}]`,
		string(raw),
	)

	got, err := decodeLines(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range lines {
		assert.Equal(t, lines[i].Name, got[i].Name)
		assert.Equal(t, lines[i].Quantity, got[i].Quantity)
		assert.True(t, lines[i].UnitPrice.Equal(got[i].UnitPrice))
	}
}

func TestLinesJSON_Empty(t *testing.T) {
	assert.Equal(t, "[]", string(encodeLines(nil)))

	got, err := decodeLines([]byte("[]"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeLines_Invalid(t *testing.T) {
	_, err := decodeLines([]byte(`[{"name":"x","unit_price":"abc"}]`))
	require.Error(t, err)

	_, err = decodeLines([]byte(`{`))
	require.Error(t, err)
}
