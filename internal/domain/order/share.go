package order

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-kart/internal/money"
)

// DefaultShareBase is the WhatsApp deep-link endpoint.
const DefaultShareBase = "https://wa.me/"

// ShareText renders the order as a WhatsApp message. Lines appear in
// snapshot order.
func (o *Order) ShareText() string {
	var b strings.Builder
	b.WriteString("🛒 *Novo Pedido*\n")
	b.WriteString("*Cliente:* ")
	b.WriteString(o.Customer)
	b.WriteString("\n")
	for _, l := range o.Lines {
		b.WriteString("- ")
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteString("x ")
		b.WriteString(l.Name)
		b.WriteString(" (")
		b.WriteString(money.Format(l.UnitPrice))
		b.WriteString(")\n")
	}
	b.WriteString("*Total: ")
	b.WriteString(money.Format(o.Total))
	b.WriteString("*")
	return b.String()
}

// ShareLink embeds text as the percent-encoded "text" query parameter of
// base. Spaces become %20, so the result decodes the same way under query
// and path unescaping.
func ShareLink(base, text string) (string, error) {
	if base == "" {
		base = DefaultShareBase
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "parse share base")
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.Errorf("share base %q must be absolute", base)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.RawQuery = "text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	u.Fragment = ""
	return u.String(), nil
}
