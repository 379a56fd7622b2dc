// Command order-reprint renders an archived order again, either as the PDF
// document or as the share message and link.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-kart/internal/domain/order"
	"github.com/xenking/pos-kart/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		id          string
		format      string
		out         string
		shareBase   string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&id, "id", "", "archived order id")
	flag.StringVar(&format, "format", "", "pdf or share; defaults to the format the order was exported as")
	flag.StringVar(&out, "out", "", "output file; defaults to the order filename for pdf and stdout for share")
	flag.StringVar(&shareBase, "share-base-url", order.DefaultShareBase, "base URL of share links")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if id == "" {
		slog.Error("order id is required: set --id")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, id, order.Format(format), out, shareBase); err != nil {
		slog.Error("order reprint failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, id string, format order.Format, out, shareBase string) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	o, exportedAs, err := postgres.NewOrderArchive(pool).Get(ctx, id)
	if err != nil {
		return errors.Wrap(err, "load order")
	}
	if format == "" {
		format = exportedAs
	}
	slog.Info("order loaded",
		slog.String("id", o.ID),
		slog.String("customer", o.Customer),
		slog.Int("lines", len(o.Lines)),
		slog.String("format", string(format)),
	)

	switch format {
	case order.FormatPDF:
		if out == "" {
			out = o.Filename()
		}
		body, err := order.NewRenderer().Render(o)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, body, 0o644); err != nil {
			return errors.Wrapf(err, "write %s", out)
		}
		slog.Info("document written", slog.String("path", out), slog.Int("bytes", len(body)))
		return nil
	case order.FormatShare:
		w := io.Writer(os.Stdout)
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return errors.Wrapf(err, "create %s", out)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		return writeShare(w, o, shareBase)
	default:
		return errors.Errorf("unknown format %q", format)
	}
}

func writeShare(w io.Writer, o *order.Order, base string) error {
	text := o.ShareText()
	link, err := order.ShareLink(base, text)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s\n\n%s\n", text, link); err != nil {
		return errors.Wrap(err, "write share")
	}
	return nil
}
