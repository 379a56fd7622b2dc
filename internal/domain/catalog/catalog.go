// Package catalog holds the in-memory product table of a session.
package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-kart/internal/money"
	"github.com/xenking/pos-kart/internal/query"
)

// Sentinel errors for product validation.
var (
	ErrEmptyName     = errors.New("product name required")
	ErrNegativePrice = errors.New("price must not be negative")
)

// DuplicateProductError indicates a product name is already in the catalog.
type DuplicateProductError struct {
	Name string
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("product %q already exists", e.Name)
}

// NotFoundError indicates a product name is not in the catalog.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.Name)
}

// Product is a sellable item. Name is the catalog key.
type Product struct {
	Name  string
	Price decimal.Decimal
}

// Row is an unparsed product record from the catalog source.
type Row struct {
	Name  string
	Price string
}

// LoadReport summarizes a Load.
type LoadReport struct {
	Rows       int
	Loaded     int
	BadPrice   int
	EmptyName  int
	Duplicates int
}

// Dropped returns the number of rows that did not make it into the catalog.
func (r LoadReport) Dropped() int {
	return r.Rows - r.Loaded
}

// Catalog is an insertion-ordered set of products with unique names.
// It is not safe for concurrent use; a session owns its catalog.
type Catalog struct {
	products []Product
	index    map[string]int
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Load builds a catalog from raw rows. Rows with an empty name, an
// unparsable or negative price, or a name seen earlier are dropped and
// counted in the report.
func Load(rows []Row) (*Catalog, LoadReport) {
	c := New()
	rep := LoadReport{Rows: len(rows)}

	for _, r := range rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			rep.EmptyName++
			continue
		}
		price, err := money.ParsePrice(r.Price)
		if err != nil {
			rep.BadPrice++
			continue
		}
		if _, ok := c.index[name]; ok {
			rep.Duplicates++
			continue
		}
		c.insert(Product{Name: name, Price: price})
		rep.Loaded++
	}

	return c, rep
}

// Add appends a new product.
func (c *Catalog) Add(name string, price decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if err := validate(name, price); err != nil {
		return err
	}
	if _, ok := c.index[name]; ok {
		return &DuplicateProductError{Name: name}
	}
	c.insert(Product{Name: name, Price: price})
	return nil
}

// Edit renames and reprices the product called target in place. It reports
// false without error when target is not in the catalog.
func (c *Catalog) Edit(target, newName string, newPrice decimal.Decimal) (bool, error) {
	newName = strings.TrimSpace(newName)
	if err := validate(newName, newPrice); err != nil {
		return false, err
	}

	i, ok := c.index[target]
	if !ok {
		return false, nil
	}
	if j, taken := c.index[newName]; taken && j != i {
		return false, &DuplicateProductError{Name: newName}
	}

	delete(c.index, target)
	c.products[i] = Product{Name: newName, Price: newPrice}
	c.index[newName] = i
	return true, nil
}

// Lookup returns the product with the given name.
func (c *Catalog) Lookup(name string) (Product, bool) {
	i, ok := c.index[name]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

// Search returns the products whose name contains q, ignoring case, in
// catalog order. An empty q returns every product.
func (c *Catalog) Search(q string) []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if query.Match(p.Name, true, q) {
			out = append(out, p)
		}
	}
	return out
}

// Products returns a copy of all products in catalog order.
func (c *Catalog) Products() []Product {
	return slices.Clone(c.products)
}

// Sorted returns products sorted alphabetically by name.
func Sorted(products []Product) []Product {
	out := slices.Clone(products)
	slices.SortStableFunc(out, func(a, b Product) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Clone returns an independent copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	return &Catalog{
		products: slices.Clone(c.products),
		index:    maps.Clone(c.index),
	}
}

func (c *Catalog) insert(p Product) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	c.index[p.Name] = len(c.products)
	c.products = append(c.products, p)
}

func validate(name string, price decimal.Decimal) error {
	if name == "" {
		return ErrEmptyName
	}
	if price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
