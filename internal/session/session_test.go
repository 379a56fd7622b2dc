package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-kart/internal/domain/cart"
	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/money"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(dur time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(dur)
	c.mu.Unlock()
}

func sequentialIDs() func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func baseCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, rep := catalog.Load([]catalog.Row{
		{Name: "Widget", Price: "10.00"},
		{Name: "Gadget", Price: "5.50"},
	})
	require.Equal(t, 2, rep.Loaded)
	return c
}

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	st := NewStore(baseCatalog(t), StoreConfig{
		TTL:   ttl,
		Now:   clock.Now,
		NewID: sequentialIDs(),
	})
	return st, clock
}

func dispatch(t *testing.T, s *Session, cmd Command) Outcome {
	t.Helper()
	out, err := s.Dispatch(cmd)
	require.NoError(t, err)
	return out
}

func TestScenario_CartTotal(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()

	dispatch(t, s, AddToCart{Name: "Widget", Quantity: 2})
	dispatch(t, s, AddToCart{Name: "Gadget", Quantity: 1})

	v := s.View("")
	assert.True(t, d("25.50").Equal(v.Total))
	assert.Equal(t, "R$ 25,50", money.Format(v.Total))
	require.Len(t, v.Lines, 2)
	assert.Equal(t, "Widget", v.Lines[0].Name)
	assert.True(t, d("20").Equal(v.Lines[0].Subtotal))
}

func TestAddToCart(t *testing.T) {
	t.Run("copies catalog price", func(t *testing.T) {
		st, _ := newTestStore(t, 0)
		s := st.Create()

		dispatch(t, s, AddToCart{Name: "Gadget", Quantity: 3})
		v := s.View("")
		require.Len(t, v.Lines, 1)
		assert.True(t, d("5.50").Equal(v.Lines[0].UnitPrice))
	})

	t.Run("price override", func(t *testing.T) {
		st, _ := newTestStore(t, 0)
		s := st.Create()

		p := d("4")
		dispatch(t, s, AddToCart{Name: "Gadget", Quantity: 1, Price: &p})
		v := s.View("")
		assert.True(t, d("4").Equal(v.Total))
	})

	t.Run("unknown product", func(t *testing.T) {
		st, _ := newTestStore(t, 0)
		s := st.Create()

		_, err := s.Dispatch(AddToCart{Name: "Nope", Quantity: 1})
		var nfErr *catalog.NotFoundError
		require.ErrorAs(t, err, &nfErr)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		st, _ := newTestStore(t, 0)
		s := st.Create()

		_, err := s.Dispatch(AddToCart{Name: "Widget", Quantity: 0})
		require.ErrorIs(t, err, cart.ErrInvalidQuantity)
		assert.Empty(t, s.View("").Lines)
	})
}

func TestCartPriceDecoupledFromCatalog(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()

	dispatch(t, s, AddToCart{Name: "Widget", Quantity: 1})
	dispatch(t, s, SetPrice{Name: "Widget", Price: d("7")})
	dispatch(t, s, EditProduct{Target: "Widget", Name: "Widget", Price: d("15")})

	v := s.View("")
	assert.True(t, d("7").Equal(v.Lines[0].UnitPrice))
	assert.True(t, d("15").Equal(v.Products[1].Price))
}

func TestCommands(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()

	assert.True(t, dispatch(t, s, AddProduct{Name: "Gizmo", Price: d("1.25")}).Changed)
	assert.True(t, dispatch(t, s, EditProduct{Target: "Widget", Name: "Widget Pro", Price: d("12")}).Changed)
	assert.False(t, dispatch(t, s, EditProduct{Target: "Missing", Name: "X", Price: d("1")}).Changed)

	dispatch(t, s, AddToCart{Name: "Gizmo", Quantity: 2})
	dispatch(t, s, SetQuantity{Name: "Gizmo", Quantity: 4})
	assert.True(t, d("5").Equal(s.View("").Total))

	_, err := s.Dispatch(SetQuantity{Name: "Widget Pro", Quantity: 1})
	var nfErr *cart.NotFoundError
	require.ErrorAs(t, err, &nfErr)

	assert.True(t, dispatch(t, s, RemoveFromCart{Name: "Gizmo"}).Changed)
	assert.False(t, dispatch(t, s, RemoveFromCart{Name: "Gizmo"}).Changed)
	assert.Empty(t, s.View("").Lines)

	assert.True(t, dispatch(t, s, SetCustomer{Name: " Maria "}).Changed)
	assert.False(t, dispatch(t, s, SetCustomer{Name: "Maria"}).Changed)
	assert.Equal(t, "Maria", s.View("").Customer)
}

func TestUpdateLine(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()
	dispatch(t, s, AddToCart{Name: "Widget", Quantity: 1})

	qty, price := 3, d("8")
	assert.True(t, dispatch(t, s, UpdateLine{Name: "Widget", Quantity: &qty, Price: &price}).Changed)
	assert.True(t, d("24").Equal(s.View("").Total))

	zero, negative := 0, d("-1")
	_, err := s.Dispatch(UpdateLine{Name: "Widget", Quantity: &zero, Price: &price})
	require.ErrorIs(t, err, cart.ErrInvalidQuantity)
	_, err = s.Dispatch(UpdateLine{Name: "Widget", Quantity: &qty, Price: &negative})
	require.ErrorIs(t, err, cart.ErrNegativePrice)

	one := 1
	_, err = s.Dispatch(UpdateLine{Name: "Gadget", Quantity: &one})
	var nfErr *cart.NotFoundError
	require.ErrorAs(t, err, &nfErr)

	assert.True(t, d("24").Equal(s.View("").Total), "rejected updates leave the line unchanged")
	assert.False(t, dispatch(t, s, UpdateLine{Name: "Widget"}).Changed)
}

func TestView_SearchAndSort(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()
	dispatch(t, s, AddProduct{Name: "Adapter", Price: d("3")})

	names := func(ps []catalog.Product) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name
		}
		return out
	}

	assert.Equal(t, []string{"Adapter", "Gadget", "Widget"}, names(s.View("").Products))
	assert.Equal(t, []string{"Gadget", "Widget"}, names(s.View("DGE").Products))
	assert.Equal(t, s.View("ad").Products, s.View("AD").Products)
}

func TestExport(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()
	dispatch(t, s, SetCustomer{Name: "Maria"})
	dispatch(t, s, AddToCart{Name: "Widget", Quantity: 2})

	out := dispatch(t, s, Export{})
	require.NotNil(t, out.Order)
	assert.Equal(t, "Maria", out.Order.Customer)
	assert.Equal(t, "id-2", out.Order.ID)
	assert.True(t, d("20").Equal(out.Order.Total))

	// The snapshot does not follow later mutations.
	dispatch(t, s, SetQuantity{Name: "Widget", Quantity: 5})
	assert.Equal(t, 2, out.Order.Lines[0].Quantity)

	// Exporting never clears the cart.
	assert.Len(t, s.View("").Lines, 1)

	t.Run("customer override", func(t *testing.T) {
		out := dispatch(t, s, Export{Customer: "João"})
		assert.Equal(t, "João", out.Order.Customer)
		assert.Equal(t, "Maria", s.View("").Customer, "override names the order only")
	})
}

func TestStore_Isolation(t *testing.T) {
	st, _ := newTestStore(t, 0)
	a := st.Create()
	b := st.Create()
	require.NotEqual(t, a.ID(), b.ID())

	dispatch(t, a, AddProduct{Name: "Only A", Price: d("1")})
	dispatch(t, a, AddToCart{Name: "Widget", Quantity: 1})
	dispatch(t, a, EditProduct{Target: "Gadget", Name: "Gadget X", Price: d("9")})

	vb := st.Create().View("")
	assert.Len(t, vb.Products, 2, "base catalog untouched")
	assert.Empty(t, b.View("").Lines)
	assert.Len(t, b.View("Only").Products, 0)
}

func TestStore_GetOrCreate(t *testing.T) {
	st, _ := newTestStore(t, 0)

	s, created, err := st.GetOrCreate("")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, st.Exists(s.ID()))

	again, created, err := st.GetOrCreate(s.ID())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)

	_, created, err = st.GetOrCreate("unknown")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, st.Len())
	assert.False(t, st.Exists("unknown"))

	st.Delete(s.ID())
	_, err = st.Get(s.ID())
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, st.Exists(s.ID()))
}

func TestStore_MaxSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	st := NewStore(baseCatalog(t), StoreConfig{
		TTL:         time.Hour,
		MaxSessions: 2,
		Now:         clock.Now,
		NewID:       sequentialIDs(),
	})

	first, _, err := st.GetOrCreate("")
	require.NoError(t, err)
	second, _, err := st.GetOrCreate("")
	require.NoError(t, err)

	_, _, err = st.GetOrCreate("")
	require.ErrorIs(t, err, ErrStoreFull)
	assert.Equal(t, 2, st.Len())

	t.Run("existing sessions still resolve", func(t *testing.T) {
		got, created, err := st.GetOrCreate(second.ID())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, second, got)
	})

	t.Run("idle sessions make room", func(t *testing.T) {
		clock.Advance(50 * time.Minute)
		_, err := st.Get(second.ID())
		require.NoError(t, err)
		clock.Advance(20 * time.Minute)

		s, created, err := st.GetOrCreate("")
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, st.Exists(first.ID()))
		assert.True(t, st.Exists(s.ID()))
		assert.Equal(t, 2, st.Len())
	})
}

func TestStore_Expiry(t *testing.T) {
	st, clock := newTestStore(t, time.Hour)
	idle := st.Create()
	active := st.Create()

	clock.Advance(40 * time.Minute)
	_, err := st.Get(active.ID())
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, st.Cleanup(clock.Now()))
	assert.Equal(t, 1, st.Len())

	_, err = st.Get(idle.ID())
	require.ErrorIs(t, err, ErrNotFound)

	clock.Advance(2 * time.Hour)
	_, err = st.Get(active.ID())
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, st.Len())
}

func TestStore_NoTTL(t *testing.T) {
	st, clock := newTestStore(t, 0)
	s := st.Create()

	clock.Advance(1000 * time.Hour)
	assert.Equal(t, 0, st.Cleanup(clock.Now()))
	_, err := st.Get(s.ID())
	require.NoError(t, err)
}

func TestStore_StartCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := NewStore(baseCatalog(t), StoreConfig{TTL: time.Millisecond})
	st.Create()

	evicted := make(chan int, 1)
	st.StartCleanup(ctx, 5*time.Millisecond, func(n int) {
		select {
		case evicted <- n:
		default:
		}
	})

	select {
	case n := <-evicted:
		assert.Equal(t, 1, n)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not evicted")
	}
	assert.Equal(t, 0, st.Len())
}

func TestSession_ConcurrentDispatch(t *testing.T) {
	st, _ := newTestStore(t, 0)
	s := st.Create()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Dispatch(AddToCart{Name: "Widget", Quantity: 1})
			assert.NoError(t, err)
			_ = s.View("")
		}()
	}
	wg.Wait()

	v := s.View("")
	require.Len(t, v.Lines, 1)
	assert.Equal(t, 50, v.Lines[0].Quantity)
}
