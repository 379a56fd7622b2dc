// Package cart holds the per-session shopping cart.
package cart

import (
	"fmt"
	"math"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart validation.
var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrNegativePrice   = errors.New("price must not be negative")
)

// NotFoundError indicates the cart has no line for a product.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %q is not in the cart", e.Name)
}

// Line is one product in the cart. UnitPrice starts as the catalog price and
// may be overridden per cart.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns Quantity × UnitPrice.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart maps product names to lines, remembering insertion order.
// Every line has Quantity >= 1. Not safe for concurrent use.
type Cart struct {
	lines map[string]*Line
	order []string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// AddItem adds qty units of name. An existing line keeps its price and only
// grows in quantity. A merge that would overflow the quantity is rejected
// with ErrInvalidQuantity and leaves the line unchanged.
func (c *Cart) AddItem(name string, qty int, price decimal.Decimal) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if price.IsNegative() {
		return ErrNegativePrice
	}

	if l, ok := c.lines[name]; ok {
		if qty > math.MaxInt-l.Quantity {
			return ErrInvalidQuantity
		}
		l.Quantity += qty
		return nil
	}

	if c.lines == nil {
		c.lines = make(map[string]*Line)
	}
	c.lines[name] = &Line{Name: name, Quantity: qty, UnitPrice: price}
	c.order = append(c.order, name)
	return nil
}

// SetQuantity overwrites the quantity of an existing line.
func (c *Cart) SetQuantity(name string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	l, ok := c.lines[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	l.Quantity = qty
	return nil
}

// SetPrice overwrites the unit price of an existing line. The catalog is not
// affected.
func (c *Cart) SetPrice(name string, price decimal.Decimal) error {
	if price.IsNegative() {
		return ErrNegativePrice
	}
	l, ok := c.lines[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	l.UnitPrice = price
	return nil
}

// Remove deletes the line for name. It reports whether a line was removed.
func (c *Cart) Remove(name string) bool {
	if _, ok := c.lines[name]; !ok {
		return false
	}
	delete(c.lines, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	return true
}

// Get returns the line for name.
func (c *Cart) Get(name string) (Line, bool) {
	l, ok := c.lines[name]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

// Subtotal returns the line total for name.
func (c *Cart) Subtotal(name string) (decimal.Decimal, error) {
	l, ok := c.lines[name]
	if !ok {
		return decimal.Zero, &NotFoundError{Name: name}
	}
	return l.Subtotal(), nil
}

// Total sums every line subtotal.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, name := range c.order {
		total = total.Add(c.lines[name].Subtotal())
	}
	return total
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.lines[name])
	}
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.order)
}
