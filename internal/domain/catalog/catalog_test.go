package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func productNames(ps []Product) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, rep := Load([]Row{
		{Name: "Widget", Price: "10.00"},
		{Name: "Gadget", Price: "5.50"},
	})
	require.Equal(t, 2, rep.Loaded)
	return c
}

func TestLoad(t *testing.T) {
	c, rep := Load([]Row{
		{Name: "Widget", Price: "10.00"},
		{Name: "Broken", Price: "abc"},
		{Name: "  Gadget ", Price: "5,50"},
		{Name: "", Price: "1"},
		{Name: "Widget", Price: "99"},
		{Name: "Negative", Price: "-2"},
	})

	assert.Equal(t, []string{"Widget", "Gadget"}, productNames(c.Products()))
	assert.Equal(t, 6, rep.Rows)
	assert.Equal(t, 2, rep.Loaded)
	assert.Equal(t, 2, rep.BadPrice)
	assert.Equal(t, 1, rep.EmptyName)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 4, rep.Dropped())

	w, ok := c.Lookup("Widget")
	require.True(t, ok)
	assert.True(t, d("10").Equal(w.Price), "first occurrence wins")
}

func TestLoad_UnparsablePriceDropsOneRow(t *testing.T) {
	rows := []Row{
		{Name: "A", Price: "1"},
		{Name: "B", Price: "abc"},
		{Name: "C", Price: "3"},
	}
	c, rep := Load(rows)
	assert.Equal(t, len(rows)-1, c.Len())
	assert.Equal(t, 1, rep.Dropped())
}

func TestAdd(t *testing.T) {
	c := newTestCatalog(t)

	require.NoError(t, c.Add(" Gizmo ", d("3.25")))
	p, ok := c.Lookup("Gizmo")
	require.True(t, ok)
	assert.True(t, d("3.25").Equal(p.Price))
	assert.Equal(t, 3, c.Len())

	t.Run("duplicate", func(t *testing.T) {
		err := c.Add("Widget", d("1"))
		var dupErr *DuplicateProductError
		require.ErrorAs(t, err, &dupErr)
		assert.Equal(t, "Widget", dupErr.Name)
		assert.Equal(t, 3, c.Len())
	})

	t.Run("empty name", func(t *testing.T) {
		require.ErrorIs(t, c.Add("   ", d("1")), ErrEmptyName)
	})

	t.Run("negative price", func(t *testing.T) {
		require.ErrorIs(t, c.Add("Thing", d("-0.01")), ErrNegativePrice)
	})
}

func TestEdit(t *testing.T) {
	t.Run("rename and reprice", func(t *testing.T) {
		c := newTestCatalog(t)

		ok, err := c.Edit("Widget", "Widget Pro", d("12.00"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, c.Len())

		_, found := c.Lookup("Widget")
		assert.False(t, found)
		p, found := c.Lookup("Widget Pro")
		require.True(t, found)
		assert.True(t, d("12").Equal(p.Price))
		assert.Equal(t, []string{"Widget Pro", "Gadget"}, productNames(c.Products()))
	})

	t.Run("price only", func(t *testing.T) {
		c := newTestCatalog(t)

		ok, err := c.Edit("Gadget", "Gadget", d("6"))
		require.NoError(t, err)
		assert.True(t, ok)
		p, _ := c.Lookup("Gadget")
		assert.True(t, d("6").Equal(p.Price))
	})

	t.Run("missing target is a no-op", func(t *testing.T) {
		c := newTestCatalog(t)

		ok, err := c.Edit("Nope", "Other", d("1"))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, []string{"Widget", "Gadget"}, productNames(c.Products()))
	})

	t.Run("rename onto existing product", func(t *testing.T) {
		c := newTestCatalog(t)

		_, err := c.Edit("Widget", "Gadget", d("1"))
		var dupErr *DuplicateProductError
		require.ErrorAs(t, err, &dupErr)
		p, _ := c.Lookup("Widget")
		assert.True(t, d("10").Equal(p.Price))
	})
}

func TestSearch(t *testing.T) {
	c, _ := Load([]Row{
		{Name: "Caneta Azul", Price: "2"},
		{Name: "Caderno", Price: "15"},
		{Name: "caneta preta", Price: "2"},
		{Name: "Abc Mix", Price: "1"},
	})

	t.Run("empty query returns everything in order", func(t *testing.T) {
		assert.Equal(t, c.Products(), c.Search(""))
	})

	t.Run("case insensitive", func(t *testing.T) {
		assert.Equal(t, []string{"Caneta Azul", "caneta preta"}, productNames(c.Search("CANETA")))
		assert.Equal(t, c.Search("ABC"), c.Search("abc"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, c.Search("lápis"))
	})
}

func TestSorted(t *testing.T) {
	in := []Product{{Name: "b"}, {Name: "C"}, {Name: "a"}}
	assert.Equal(t, []string{"C", "a", "b"}, productNames(Sorted(in)))
	assert.Equal(t, []string{"b", "C", "a"}, productNames(in), "input untouched")
}

func TestClone(t *testing.T) {
	c := newTestCatalog(t)
	cp := c.Clone()

	require.NoError(t, cp.Add("Gizmo", d("1")))
	_, err := cp.Edit("Widget", "Widget Pro", d("2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Widget", "Gadget"}, productNames(c.Products()))
	assert.Equal(t, []string{"Widget Pro", "Gadget", "Gizmo"}, productNames(cp.Products()))
}
