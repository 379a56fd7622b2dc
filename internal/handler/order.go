package handler

import (
	"context"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/pos-kart/internal/domain/order"
	"github.com/xenking/pos-kart/internal/session"
)

// export snapshots the session cart. The snapshot is taken under the session
// lock, so formatting afterwards never sees later mutations. ?customer= names
// the exported order without touching the session; use PUT /api/customer to
// change it.
func (h *Handler) export(r *http.Request) (*order.Order, error) {
	out, err := sessionFrom(r.Context()).Dispatch(session.Export{Customer: r.URL.Query().Get("customer")})
	if err != nil {
		return nil, err
	}
	return out.Order, nil
}

// exportDone records a finished export. Archive failures are logged and do not
// fail the export.
func (h *Handler) exportDone(ctx context.Context, o *order.Order, format order.Format) {
	h.exported.Add(ctx, 1, metric.WithAttributes(attribute.String("format", string(format))))

	lg := zctx.From(ctx).With(
		zap.String("order_id", o.ID),
		zap.String("format", string(format)),
		zap.Int("lines", len(o.Lines)),
	)
	if err := h.archive.Save(ctx, o, format); err != nil {
		lg.Error("Archive order", zap.Error(err))
		return
	}
	lg.Info("Order exported", zap.String("total", o.Total.StringFixed(2)))
}

func (h *Handler) shareOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.export(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	text := o.ShareText()
	link, err := order.ShareLink(h.cfg.ShareBaseURL, text)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.exportDone(r.Context(), o, order.FormatShare)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
			e.Field("customer", func(e *jx.Encoder) { e.Str(o.Customer) })
			e.Field("text", func(e *jx.Encoder) { e.Str(text) })
			e.Field("link", func(e *jx.Encoder) { e.Str(link) })
			encodeMoney(e, "total", o.Total)
		})
	})
}

func (h *Handler) orderPDF(w http.ResponseWriter, r *http.Request) {
	o, err := h.export(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	body, err := h.render(r.Context(), o)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.exportDone(r.Context(), o, order.FormatPDF)

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": o.Filename(),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) render(ctx context.Context, o *order.Order) ([]byte, error) {
	_, span := h.tracer.Start(ctx, "order.RenderPDF", trace.WithAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int("order.lines", len(o.Lines)),
	))
	defer span.End()

	body, err := h.renderer.Render(o)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("order.pdf_bytes", len(body)))
	return body, nil
}
