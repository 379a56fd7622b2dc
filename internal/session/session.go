// Package session scopes a catalog and a cart to one interactive user.
//
// Every user action is a Command dispatched to the Session, which applies it
// under the session lock. Display data is then derived from scratch by View;
// nothing is cached between calls.
package session

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/pos-kart/internal/domain/cart"
	"github.com/xenking/pos-kart/internal/domain/catalog"
)

// Session is one user's isolated catalog and cart.
type Session struct {
	id  string
	env env

	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

func newSession(id string, base *catalog.Catalog, e env) *Session {
	c := catalog.New()
	if base != nil {
		c = base.Clone()
	}
	return &Session{
		id:       id,
		env:      e,
		state:    State{Catalog: c, Cart: cart.New()},
		lastSeen: e.now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Dispatch applies cmd to the session state.
func (s *Session) Dispatch(cmd Command) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.env.now()
	return cmd.apply(&s.state, s.env)
}

// LineView is a cart line with its derived subtotal.
type LineView struct {
	cart.Line
	Subtotal decimal.Decimal
}

// View is the display data derived from a session.
type View struct {
	Customer string
	// Products is the catalog filtered by the search query and sorted by name.
	Products []catalog.Product
	Lines    []LineView
	Total    decimal.Decimal
}

// View derives the display data, filtering the catalog by search.
func (s *Session) View(search string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.state.Cart.Lines()
	views := make([]LineView, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		sub := l.Subtotal()
		views[i] = LineView{Line: l, Subtotal: sub}
		total = total.Add(sub)
	}

	return View{
		Customer: s.state.Customer,
		Products: catalog.Sorted(s.state.Catalog.Search(search)),
		Lines:    views,
		Total:    total,
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = s.env.now()
	s.mu.Unlock()
}
