package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-kart/internal/csvsource"
	"github.com/xenking/pos-kart/internal/query"
)

// runQuery filters an uploaded CSV by the name and product columns. With
// raw set, the unfiltered table is returned as well.
func (h *Handler) runQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		fail(w, r, badRequest(errors.Wrap(err, "parse form")))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, _, err := r.FormFile("file")
	if err != nil {
		fail(w, r, badRequest(errors.Wrap(err, "file")))
		return
	}
	defer func() { _ = f.Close() }()

	table, err := csvsource.ReadTable(f)
	if err != nil {
		fail(w, r, badRequest(errors.Wrap(err, "read CSV")))
		return
	}

	nameColumn := formValue(r, "name_column", h.cfg.NameColumn)
	productColumn := formValue(r, "product_column", h.cfg.ProductColumn)
	filtered, err := table.Filter(
		query.Filter{Column: nameColumn, Query: r.FormValue("name")},
		query.Filter{Column: productColumn, Query: r.FormValue("product")},
	)
	if err != nil {
		fail(w, r, err)
		return
	}
	raw, _ := strconv.ParseBool(r.FormValue("raw"))

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("filtered", func(e *jx.Encoder) { encodeTable(e, filtered) })
			if raw {
				e.Field("raw", func(e *jx.Encoder) { encodeTable(e, table) })
			}
		})
	})
}

func formValue(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}
