package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-kart/internal/domain/cart"
	"github.com/xenking/pos-kart/internal/domain/order"
)

var _ order.Archive = (*OrderArchive)(nil)

// ErrOrderNotFound is returned by Get for an unknown id.
var ErrOrderNotFound = errors.New("order not found")

// OrderArchive implements order.Archive backed by PostgreSQL.
type OrderArchive struct {
	pool *pgxpool.Pool
}

// NewOrderArchive returns an OrderArchive that uses the given pool.
func NewOrderArchive(pool *pgxpool.Pool) *OrderArchive {
	return &OrderArchive{pool: pool}
}

// Save appends an exported order. Lines are stored as a JSONB array.
func (a *OrderArchive) Save(ctx context.Context, o *order.Order, format order.Format) error {
	_, err := a.pool.Exec(ctx,
		`INSERT INTO orders (id, customer, lines, total, format, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.Customer, encodeLines(o.Lines), o.Total, string(format), o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	return nil
}

// Get loads an archived order and the format it was exported as.
func (a *OrderArchive) Get(ctx context.Context, id string) (*order.Order, order.Format, error) {
	var (
		o      order.Order
		raw    []byte
		format string
	)
	err := a.pool.QueryRow(ctx,
		`SELECT id::text, customer, lines, total, format, created_at FROM orders WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.Customer, &raw, &o.Total, &format, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrOrderNotFound
		}
		return nil, "", errors.Wrapf(err, "select order %s", id)
	}

	lines, err := decodeLines(raw)
	if err != nil {
		return nil, "", errors.Wrapf(err, "decode lines of order %s", id)
	}
	o.Lines = lines
	return &o, order.Format(format), nil
}

func encodeLines(lines []cart.Line) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, l := range lines {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
				e.Field("unit_price", func(e *jx.Encoder) { e.Str(l.UnitPrice.String()) })
			})
		}
	})
	return e.Bytes()
}

func decodeLines(raw []byte) ([]cart.Line, error) {
	var lines []cart.Line
	err := jx.DecodeBytes(raw).Arr(func(d *jx.Decoder) error {
		var l cart.Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "name":
				v, err := d.Str()
				l.Name = v
				return err
			case "quantity":
				v, err := d.Int()
				l.Quantity = v
				return err
			case "unit_price":
				v, err := d.Str()
				if err != nil {
					return err
				}
				p, err := decimal.NewFromString(v)
				if err != nil {
					return errors.Wrap(err, "unit_price")
				}
				l.UnitPrice = p
				return nil
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		lines = append(lines, l)
		return nil
	})
	return lines, err
}
