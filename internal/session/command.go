package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-kart/internal/domain/cart"
	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/domain/order"
)

// State is the mutable data owned by one session.
type State struct {
	Catalog  *catalog.Catalog
	Cart     *cart.Cart
	Customer string
}

// Outcome is what a command produced besides the state change.
type Outcome struct {
	// Changed is false when the command was a no-op.
	Changed bool
	// Order is set by Export.
	Order *order.Order
}

// Command is a discrete user action applied to a session.
type Command interface {
	apply(st *State, env env) (Outcome, error)
}

// env carries the process-level collaborators commands may need.
type env struct {
	now   func() time.Time
	newID func() string
}

func defaultEnv() env {
	return env{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// AddProduct appends a product to the session catalog.
type AddProduct struct {
	Name  string
	Price decimal.Decimal
}

func (c AddProduct) apply(st *State, _ env) (Outcome, error) {
	if err := st.Catalog.Add(c.Name, c.Price); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true}, nil
}

// EditProduct renames and reprices a catalog product. Cart lines keep the
// name and price they were added with.
type EditProduct struct {
	Target string
	Name   string
	Price  decimal.Decimal
}

func (c EditProduct) apply(st *State, _ env) (Outcome, error) {
	ok, err := st.Catalog.Edit(c.Target, c.Name, c.Price)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: ok}, nil
}

// AddToCart adds Quantity units of a catalog product. The unit price is
// copied from the catalog unless Price overrides it.
type AddToCart struct {
	Name     string
	Quantity int
	Price    *decimal.Decimal
}

func (c AddToCart) apply(st *State, _ env) (Outcome, error) {
	p, ok := st.Catalog.Lookup(c.Name)
	if !ok {
		return Outcome{}, &catalog.NotFoundError{Name: c.Name}
	}
	price := p.Price
	if c.Price != nil {
		price = *c.Price
	}
	if err := st.Cart.AddItem(p.Name, c.Quantity, price); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true}, nil
}

// SetQuantity overwrites a cart line quantity.
type SetQuantity struct {
	Name     string
	Quantity int
}

func (c SetQuantity) apply(st *State, _ env) (Outcome, error) {
	if err := st.Cart.SetQuantity(c.Name, c.Quantity); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true}, nil
}

// SetPrice overwrites a cart line unit price.
type SetPrice struct {
	Name  string
	Price decimal.Decimal
}

func (c SetPrice) apply(st *State, _ env) (Outcome, error) {
	if err := st.Cart.SetPrice(c.Name, c.Price); err != nil {
		return Outcome{}, err
	}
	return Outcome{Changed: true}, nil
}

// UpdateLine changes the quantity and/or unit price of a cart line. Both
// values are validated before either is applied.
type UpdateLine struct {
	Name     string
	Quantity *int
	Price    *decimal.Decimal
}

func (c UpdateLine) apply(st *State, _ env) (Outcome, error) {
	if _, ok := st.Cart.Get(c.Name); !ok {
		return Outcome{}, &cart.NotFoundError{Name: c.Name}
	}
	if c.Quantity != nil && *c.Quantity <= 0 {
		return Outcome{}, cart.ErrInvalidQuantity
	}
	if c.Price != nil && c.Price.IsNegative() {
		return Outcome{}, cart.ErrNegativePrice
	}
	if c.Quantity != nil {
		if err := st.Cart.SetQuantity(c.Name, *c.Quantity); err != nil {
			return Outcome{}, err
		}
	}
	if c.Price != nil {
		if err := st.Cart.SetPrice(c.Name, *c.Price); err != nil {
			return Outcome{}, err
		}
	}
	return Outcome{Changed: c.Quantity != nil || c.Price != nil}, nil
}

// RemoveFromCart deletes a cart line. Removing an absent line is a no-op.
type RemoveFromCart struct {
	Name string
}

func (c RemoveFromCart) apply(st *State, _ env) (Outcome, error) {
	return Outcome{Changed: st.Cart.Remove(c.Name)}, nil
}

// SetCustomer records the customer name used by exports.
type SetCustomer struct {
	Name string
}

func (c SetCustomer) apply(st *State, _ env) (Outcome, error) {
	name := strings.TrimSpace(c.Name)
	changed := name != st.Customer
	st.Customer = name
	return Outcome{Changed: changed}, nil
}

// Export snapshots the cart into an Order. A non-empty Customer names this
// order only; the session customer is changed by SetCustomer alone. Export
// never mutates the session.
type Export struct {
	Customer string
}

func (c Export) apply(st *State, e env) (Outcome, error) {
	customer := st.Customer
	if name := strings.TrimSpace(c.Customer); name != "" {
		customer = name
	}
	o := order.New(e.newID(), customer, st.Cart.Lines(), e.now())
	return Outcome{Order: o}, nil
}
