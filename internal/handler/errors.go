package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-kart/internal/domain/cart"
	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/money"
	"github.com/xenking/pos-kart/internal/query"
	"github.com/xenking/pos-kart/internal/session"
)

// requestError is a malformed request.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error {
	return &requestError{err: err}
}

// statusOf maps an error to an HTTP status. Domain errors are checked before
// requestError because decoding wraps them.
func statusOf(err error) int {
	var (
		dupErr      *catalog.DuplicateProductError
		productErr  *catalog.NotFoundError
		lineErr     *cart.NotFoundError
		columnErr   *query.MissingColumnError
		tooLargeErr *http.MaxBytesError
		reqErr      *requestError
	)
	switch {
	case errors.As(err, &dupErr):
		return http.StatusConflict
	case errors.As(err, &productErr), errors.As(err, &lineErr):
		return http.StatusNotFound
	case errors.As(err, &columnErr),
		errors.Is(err, catalog.ErrEmptyName),
		errors.Is(err, catalog.ErrNegativePrice),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrNegativePrice),
		errors.Is(err, money.ErrInvalidPrice):
		return http.StatusUnprocessableEntity
	case errors.As(err, &tooLargeErr), errors.Is(err, multipart.ErrMessageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrStoreFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Unexpected errors are logged and their
// message is not exposed.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}
	writeError(w, code, msg)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(code) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		})
	})
}

func writeJSON(w http.ResponseWriter, code int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
