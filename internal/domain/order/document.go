package order

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/xenking/pos-kart/internal/money"
)

// Replacement stands in for characters the document font cannot encode.
const Replacement = '?'

// ExportError is returned when an order document cannot be produced.
type ExportError struct {
	OrderID string
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export order %s: %v", e.OrderID, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Column widths in millimetres; they add up to the A4 content width.
const (
	colProduct = 110
	colQty     = 25
	colUnit    = 25
	colTotal   = 30
	rowHeight  = 10
)

// Renderer lays out an order as a single-page PDF table.
type Renderer struct {
	// Compress enables stream compression. Disabling it keeps the text
	// readable in the raw bytes.
	Compress bool
}

// NewRenderer returns a Renderer with compression enabled.
func NewRenderer() *Renderer {
	return &Renderer{Compress: true}
}

// Render produces the PDF bytes for o. Text that falls outside Latin-1 is
// replaced with Replacement instead of failing.
func (r *Renderer) Render(o *Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.Compress)
	pdf.SetCreationDate(o.CreatedAt)
	pdf.SetTitle(Latin1("Pedido "+o.Customer), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, rowHeight, "Detalhes do Pedido", "0", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, rowHeight, Latin1("Cliente: "+o.Customer), "0", 1, "", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(colProduct, rowHeight, "Produto", "1", 0, "", false, 0, "")
	pdf.CellFormat(colQty, rowHeight, "Qtd", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colUnit, rowHeight, "V. Unit.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colTotal, rowHeight, "V. Total", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, l := range o.Lines {
		pdf.CellFormat(colProduct, rowHeight, Latin1(l.Name), "1", 0, "", false, 0, "")
		pdf.CellFormat(colQty, rowHeight, strconv.Itoa(l.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colUnit, rowHeight, money.Format(l.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, rowHeight, money.Format(l.Subtotal()), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(colProduct+colQty+colUnit, rowHeight, "Total:", "1", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, rowHeight, money.Format(o.Total), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &ExportError{OrderID: o.ID, Err: err}
	}
	return buf.Bytes(), nil
}

// Latin1 re-encodes s into ISO-8859-1, the encoding of the core PDF fonts.
// Each rune outside the charset becomes Replacement.
func Latin1(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		c, ok := charmap.ISO8859_1.EncodeRune(r)
		if !ok {
			c = Replacement
		}
		b.WriteByte(c)
	}
	return b.String()
}
