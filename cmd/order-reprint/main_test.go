package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-kart/internal/domain/cart"
	"github.com/xenking/pos-kart/internal/domain/order"
)

func TestWriteShare(t *testing.T) {
	o := order.New("id", "Ana", []cart.Line{
		{Name: "Bolo", Quantity: 2, UnitPrice: decimal.RequireFromString("7.5")},
	}, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, writeShare(&buf, o, "https://api.whatsapp.com/send"))

	text := "🛒 *Novo Pedido*\n*Cliente:* Ana\n- 2x Bolo (R$ 7,50)\n*Total: R$ 15,00*"
	link, err := order.ShareLink("https://api.whatsapp.com/send", text)
	require.NoError(t, err)
	assert.Equal(t, text+"\n\n"+link+"\n", buf.String())

	require.Error(t, writeShare(&buf, o, "not a url"))
}
