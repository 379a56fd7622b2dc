// Package order derives immutable order snapshots from a cart and exports
// them as share text, share links and PDF documents.
package order

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-kart/internal/domain/cart"
)

// Order is a point-in-time snapshot of a cart plus the customer name.
type Order struct {
	ID        string
	Customer  string
	Lines     []cart.Line
	Total     decimal.Decimal
	CreatedAt time.Time
}

// New snapshots lines into an Order. The lines are copied and the total is
// computed from the copy.
func New(id, customer string, lines []cart.Line, now time.Time) *Order {
	snapshot := slices.Clone(lines)
	total := decimal.Zero
	for _, l := range snapshot {
		total = total.Add(l.Subtotal())
	}
	return &Order{
		ID:        id,
		Customer:  strings.TrimSpace(customer),
		Lines:     snapshot,
		Total:     total,
		CreatedAt: now,
	}
}

// Filename returns the download name of the order document: the customer
// name lower-cased with spaces replaced.
func (o *Order) Filename() string {
	slug := strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', '"', '\r', '\n':
			return -1
		}
		return r
	}, strings.ToLower(o.Customer))
	if slug == "" {
		slug = "cliente"
	}
	return "pedido_" + slug + ".pdf"
}

// Format names an export representation.
type Format string

// Export formats.
const (
	FormatShare Format = "share"
	FormatPDF   Format = "pdf"
)

// Archive records exported orders.
type Archive interface {
	Save(ctx context.Context, o *Order, format Format) error
}

// NopArchive discards orders. It is used when no database is configured.
type NopArchive struct{}

// Save implements Archive.
func (NopArchive) Save(context.Context, *Order, Format) error { return nil }
