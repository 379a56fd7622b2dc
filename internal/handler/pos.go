package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/session"
)

// nameParam returns the {name} path parameter. chi matches on RawPath when
// the request has one, leaving the parameter escaped.
func nameParam(r *http.Request) (string, error) {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return name, nil
	}
	name, err := url.PathUnescape(name)
	if err != nil {
		return "", badRequest(errors.Wrap(err, "name"))
	}
	return name, nil
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	v := sessionFrom(r.Context()).View(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeView(e, v) })
}

func (h *Handler) listCatalog(w http.ResponseWriter, r *http.Request) {
	v := sessionFrom(r.Context()).View(r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("products", func(e *jx.Encoder) { encodeProducts(e, v.Products) })
		})
	})
}

func (h *Handler) addProduct(w http.ResponseWriter, r *http.Request) {
	req, err := decodeProduct(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	s := sessionFrom(r.Context())
	if _, err := s.Dispatch(session.AddProduct{Name: req.Name, Price: req.Price}); err != nil {
		fail(w, r, err)
		return
	}
	writeProduct(w, http.StatusCreated, catalog.Product{Name: req.Name, Price: req.Price})
}

func (h *Handler) editProduct(w http.ResponseWriter, r *http.Request) {
	target, err := nameParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req, err := decodeProduct(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = target
	}

	s := sessionFrom(r.Context())
	out, err := s.Dispatch(session.EditProduct{Target: target, Name: req.Name, Price: req.Price})
	if err != nil {
		fail(w, r, err)
		return
	}
	if !out.Changed {
		fail(w, r, &catalog.NotFoundError{Name: target})
		return
	}
	writeProduct(w, http.StatusOK, catalog.Product{Name: req.Name, Price: req.Price})
}

func writeProduct(w http.ResponseWriter, code int, p catalog.Product) {
	p.Name = strings.TrimSpace(p.Name)
	writeJSON(w, code, func(e *jx.Encoder) { encodeProduct(e, p) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	writeCart(w, sessionFrom(r.Context()))
}

func writeCart(w http.ResponseWriter, s *session.Session) {
	v := s.View("")
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeCart(e, v) })
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCartItem(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	s := sessionFrom(r.Context())
	if _, err := s.Dispatch(session.AddToCart{Name: req.Name, Quantity: qty, Price: req.Price}); err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, s)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req, err := decodeCartItem(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if req.Quantity == nil && req.Price == nil {
		fail(w, r, badRequest(errors.New("quantity or price is required")))
		return
	}

	s := sessionFrom(r.Context())
	if _, err := s.Dispatch(session.UpdateLine{Name: name, Quantity: req.Quantity, Price: req.Price}); err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, s)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	name, err := nameParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if _, err := sessionFrom(r.Context()).Dispatch(session.RemoveFromCart{Name: name}); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setCustomer(w http.ResponseWriter, r *http.Request) {
	name, err := decodeCustomer(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}

	s := sessionFrom(r.Context())
	if _, err := s.Dispatch(session.SetCustomer{Name: name}); err != nil {
		fail(w, r, err)
		return
	}
	customer := s.View("").Customer
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("customer", func(e *jx.Encoder) { e.Str(customer) })
		})
	})
}
