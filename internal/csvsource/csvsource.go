// Package csvsource reads catalog files and arbitrary CSV tables, plain or
// gzip-compressed.
package csvsource

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/text/encoding/charmap"

	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/query"
)

// ErrSourceMissing is returned when the catalog file does not exist.
var ErrSourceMissing = errors.New("catalog source not found")

// DataLoadError reports a catalog source that could not be read. It is fatal
// at startup.
type DataLoadError struct {
	Path string
	Err  error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load catalog %s: %v", e.Path, e.Err)
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Is lets a missing file match ErrSourceMissing.
func (e *DataLoadError) Is(target error) bool {
	return target == ErrSourceMissing && errors.Is(e.Err, fs.ErrNotExist)
}

var gzipMagic = []byte{0x1f, 0x8b}

// NewReader returns a reader over r that transparently decompresses gzip
// input, detected by its magic bytes.
func NewReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "peek")
	}
	if !bytes.Equal(head, gzipMagic) {
		return io.NopCloser(br), nil
	}

	gz, err := pgzip.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "create gzip reader")
	}
	return gz, nil
}

// ReadTable parses CSV from r. The first record is the header. Records may
// have fewer or more fields than the header. Fields that are not valid UTF-8
// are decoded as Windows-1252, the usual encoding of spreadsheet exports.
func ReadTable(r io.Reader) (*query.Table, error) {
	rc, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	cr := csv.NewReader(rc)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty CSV: header row required")
		}
		return nil, errors.Wrap(err, "read header")
	}
	decodeFields(header)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := &query.Table{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read row %d", len(t.Rows)+1)
		}
		decodeFields(rec)
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

func decodeFields(rec []string) {
	for i, v := range rec {
		if utf8.ValidString(v) {
			continue
		}
		s, err := charmap.Windows1252.NewDecoder().String(v)
		if err != nil {
			s = strings.ToValidUTF8(v, "\uFFFD")
		}
		rec[i] = s
	}
}

// ReadTableFile opens path and parses it with ReadTable.
func ReadTableFile(path string) (*query.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	return ReadTable(f)
}

// CatalogRows converts a table into catalog rows by position: the first
// column is the product description and the second the sale price. Header
// names are ignored. Records with fewer than two fields yield a row with an
// empty price, which the catalog drops.
func CatalogRows(t *query.Table) []catalog.Row {
	rows := make([]catalog.Row, 0, len(t.Rows))
	for _, rec := range t.Rows {
		name, _ := query.Cell(rec, 0)
		price, _ := query.Cell(rec, 1)
		rows = append(rows, catalog.Row{Name: name, Price: price})
	}
	return rows
}

// LoadCatalog reads the catalog file at path. Every failure, including a
// missing file, is a *DataLoadError; a missing file also matches
// ErrSourceMissing.
func LoadCatalog(path string) (*catalog.Catalog, catalog.LoadReport, error) {
	t, err := ReadTableFile(path)
	if err != nil {
		return nil, catalog.LoadReport{}, &DataLoadError{Path: path, Err: err}
	}

	c, rep := catalog.Load(CatalogRows(t))
	return c, rep, nil
}
