package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/money"
	"github.com/xenking/pos-kart/internal/query"
	"github.com/xenking/pos-kart/internal/session"
)

const maxJSONBody = 64 << 10

// decodeBody decodes a JSON object body, calling field for every key.
func decodeBody(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return badRequest(errors.Wrap(err, "read body"))
	}
	if err := jx.DecodeBytes(body).Obj(field); err != nil {
		return badRequest(errors.Wrap(err, "decode body"))
	}
	return nil
}

// decodePrice accepts a JSON number or a string such as "10,50" or "R$ 3.20".
func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		p, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, errors.Wrapf(money.ErrInvalidPrice, "parse %q", n.String())
		}
		return p, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return money.ParsePrice(s)
	default:
		return decimal.Zero, errors.Errorf("price: unexpected %s", tt)
	}
}

type productRequest struct {
	Name     string
	Price    decimal.Decimal
	HasPrice bool
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (productRequest, error) {
	var req productRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			req.Name, err = d.Str()
		case "price":
			req.Price, err = decodePrice(d)
			req.HasPrice = true
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return req, err
	}
	if !req.HasPrice {
		return req, badRequest(errors.New("price is required"))
	}
	return req, nil
}

type cartItemRequest struct {
	Name     string
	Quantity *int
	Price    *decimal.Decimal
}

func decodeCartItem(w http.ResponseWriter, r *http.Request) (cartItemRequest, error) {
	var req cartItemRequest
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			req.Name = v
			return err
		case "quantity":
			v, err := d.Int()
			req.Quantity = &v
			return err
		case "price":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := decodePrice(d)
			req.Price = &v
			return err
		default:
			return d.Skip()
		}
	})
	return req, err
}

func decodeCustomer(w http.ResponseWriter, r *http.Request) (string, error) {
	var name string
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		if key != "name" {
			return d.Skip()
		}
		v, err := d.Str()
		name = v
		return err
	})
	return name, err
}

func encodeMoney(e *jx.Encoder, field string, v decimal.Decimal) {
	e.Field(field, func(e *jx.Encoder) { e.Str(v.StringFixed(2)) })
	e.Field(field+"_display", func(e *jx.Encoder) { e.Str(money.Format(v)) })
}

func encodeProduct(e *jx.Encoder, p catalog.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		encodeMoney(e, "price", p.Price)
	})
}

func encodeProducts(e *jx.Encoder, products []catalog.Product) {
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
}

func encodeCart(e *jx.Encoder, v session.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range v.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						encodeMoney(e, "unit_price", l.UnitPrice)
						encodeMoney(e, "subtotal", l.Subtotal)
					})
				}
			})
		})
		encodeMoney(e, "total", v.Total)
	})
}

func encodeView(e *jx.Encoder, v session.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("customer", func(e *jx.Encoder) { e.Str(v.Customer) })
		e.Field("products", func(e *jx.Encoder) { encodeProducts(e, v.Products) })
		e.Field("cart", func(e *jx.Encoder) { encodeCart(e, v) })
	})
}

// encodeTable writes columns and rows. Rows are padded or cut to the header
// width; empty and missing cells are null.
func encodeTable(e *jx.Encoder, t *query.Table) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("columns", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range t.Columns {
					e.Str(c)
				}
			})
		})
		e.Field("rows", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, row := range t.Rows {
					e.Arr(func(e *jx.Encoder) {
						for i := range t.Columns {
							if v, ok := query.Cell(row, i); ok && v != "" {
								e.Str(v)
							} else {
								e.Null()
							}
						}
					})
				}
			})
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(len(t.Rows)) })
	})
}
