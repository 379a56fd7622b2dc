// Package handler exposes POS sessions and the CSV query tool over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/pos-kart/internal/domain/order"
	"github.com/xenking/pos-kart/internal/session"
)

const instrumentationName = "github.com/xenking/pos-kart/internal/handler"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ShareBaseURL prefixes share links. Empty means order.DefaultShareBase.
	ShareBaseURL string
	// CookieName names the session cookie.
	CookieName string
	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool
	// NameColumn and ProductColumn are the query columns used when the
	// upload does not name them.
	NameColumn    string
	ProductColumn string
	// MaxUploadBytes limits CSV uploads.
	MaxUploadBytes int64
}

// Handler serves the POS API.
type Handler struct {
	cfg      Config
	sessions *session.Store
	renderer *order.Renderer
	archive  order.Archive

	tracer   trace.Tracer
	exported metric.Int64Counter
}

// New constructs a Handler. A nil archive disables order archiving.
func New(
	cfg Config,
	sessions *session.Store,
	archive order.Archive,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Handler, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = "pos_session"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if archive == nil {
		archive = order.NopArchive{}
	}

	exported, err := mp.Meter(instrumentationName).Int64Counter("pos.orders.exported",
		metric.WithDescription("Orders exported, by format"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create exported counter")
	}

	return &Handler{
		cfg:      cfg,
		sessions: sessions,
		renderer: order.NewRenderer(),
		archive:  archive,
		tracer:   tp.Tracer(instrumentationName),
		exported: exported,
	}, nil
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/query", h.runQuery)

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Get("/api/session", h.getSession)

		r.Get("/api/catalog", h.listCatalog)
		r.Post("/api/catalog", h.addProduct)
		r.Put("/api/catalog/{name}", h.editProduct)

		r.Get("/api/cart", h.getCart)
		r.Post("/api/cart/items", h.addToCart)
		r.Patch("/api/cart/items/{name}", h.updateCartItem)
		r.Delete("/api/cart/items/{name}", h.removeCartItem)

		r.Put("/api/customer", h.setCustomer)

		r.Get("/api/order/share", h.shareOrder)
		r.Get("/api/order/pdf", h.orderPDF)
	})
}

// Routes returns a router serving only the API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}
