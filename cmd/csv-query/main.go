// Command csv-query filters CSV files by case-insensitive substring matches
// on a name column and a product column and prints the matching rows.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-kart/internal/csvsource"
	"github.com/xenking/pos-kart/internal/query"
)

type options struct {
	Name          string
	Product       string
	NameColumn    string
	ProductColumn string
	// Raw appends the unfiltered table after an empty line.
	Raw bool
}

func main() {
	var (
		file string
		opts options
	)

	flag.StringVar(&file, "file", "", "CSV file to query, plain or gzip; more files may follow as arguments")
	flag.StringVar(&opts.Name, "name", "", "filter the name column by this text")
	flag.StringVar(&opts.Product, "product", "", "filter the product column by this text")
	flag.StringVar(&opts.NameColumn, "name-column", "Nome", "column matched by -name")
	flag.StringVar(&opts.ProductColumn, "product-column", "Produto", "column matched by -product")
	flag.BoolVar(&opts.Raw, "raw", false, "also print the unfiltered data")
	flag.Parse()

	files := flag.Args()
	if file != "" {
		files = append([]string{file}, files...)
	}
	if len(files) == 0 {
		slog.Error("no input: set -file or pass CSV files as arguments")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Stdout, files, opts); err != nil {
		slog.Error("csv query failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, files []string, opts options) error {
	table, err := readTables(ctx, files)
	if err != nil {
		return err
	}

	filtered, err := table.Filter(
		query.Filter{Column: opts.NameColumn, Query: opts.Name},
		query.Filter{Column: opts.ProductColumn, Query: opts.Product},
	)
	if err != nil {
		return err
	}
	slog.Info("rows matched",
		slog.Int("matched", len(filtered.Rows)),
		slog.Int("rows", len(table.Rows)),
		slog.Int("files", len(files)),
	)

	if err := writeTable(w, filtered); err != nil {
		return err
	}
	if !opts.Raw {
		return nil
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return errors.Wrap(err, "write separator")
	}
	return writeTable(w, table)
}

// readTables reads files concurrently and concatenates their rows in
// argument order. Every file must have the same header.
func readTables(ctx context.Context, files []string) (*query.Table, error) {
	tables := make([]*query.Table, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := csvsource.ReadTableFile(path)
			if err != nil {
				return errors.Wrapf(err, "read %s", path)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := &query.Table{Columns: tables[0].Columns}
	for i, t := range tables {
		if !slices.Equal(t.Columns, merged.Columns) {
			return nil, errors.Errorf("%s: header %q differs from %s", files[i], t.Columns, files[0])
		}
		merged.Rows = append(merged.Rows, t.Rows...)
	}
	return merged, nil
}

func writeTable(w io.Writer, t *query.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return errors.Wrap(err, "write rows")
	}
	return nil
}
