// Package app wires the POS server together.
package app

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pos-kart/internal/csvsource"
	"github.com/xenking/pos-kart/internal/domain/catalog"
	"github.com/xenking/pos-kart/internal/domain/order"
	"github.com/xenking/pos-kart/internal/handler"
	"github.com/xenking/pos-kart/internal/session"
	"github.com/xenking/pos-kart/internal/storage/postgres"
	"github.com/xenking/pos-kart/pkg/health"
	"github.com/xenking/pos-kart/pkg/httpmiddleware"
)

// Run loads the catalog, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("catalog", cfg.CatalogPath),
	)

	base, err := loadCatalog(lg, cfg.CatalogPath)
	if err != nil {
		return err
	}

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	var archive order.Archive = order.NopArchive{}
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		archive = postgres.NewOrderArchive(pool)
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	} else {
		lg.Info("No database configured, exported orders are not archived")
	}
	healthSvc.Start(ctx, 10*time.Second)

	sessions := session.NewStore(base, session.StoreConfig{
		TTL:         cfg.Session.TTL,
		MaxSessions: cfg.Session.MaxSessions,
	})
	sessions.StartCleanup(ctx, cfg.Session.CleanupInterval, func(n int) {
		lg.Debug("Idle sessions evicted", zap.Int("evicted", n), zap.Int("live", sessions.Len()))
	})

	h, err := handler.New(handler.Config{
		ShareBaseURL:   cfg.Share.BaseURL,
		CookieName:     cfg.Session.CookieName,
		CookieSecure:   cfg.Session.Secure,
		NameColumn:     cfg.Query.NameColumn,
		ProductColumn:  cfg.Query.ProductColumn,
		MaxUploadBytes: cfg.Query.MaxUploadBytes,
	}, sessions, archive, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	r := chi.NewRouter()
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Register(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
		Handler: httpmiddleware.Wrap(r,
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.RequestIDHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Max:          cfg.RateLimit.Max,
				NewClientMax: cfg.RateLimit.NewClientMax,
				Window:       cfg.RateLimit.Window,
				CookieName:   cfg.Session.CookieName,
				SessionKnown: sessions.Exists,
			}),
			httpmiddleware.Instrument("pos-server", m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})
	return g.Wait()
}

// loadCatalog reads the base catalog. A missing or unreadable file is fatal.
func loadCatalog(lg *zap.Logger, path string) (*catalog.Catalog, error) {
	c, rep, err := csvsource.LoadCatalog(path)
	if err != nil {
		if errors.Is(err, csvsource.ErrSourceMissing) {
			lg.Error("Catalog file not found; set POS_CATALOG_PATH to the sales CSV", zap.String("path", path))
		}
		return nil, errors.Wrap(err, "load catalog")
	}

	lg.Info("Catalog loaded",
		zap.Int("rows", rep.Rows),
		zap.Int("products", rep.Loaded),
		zap.Int("bad_price", rep.BadPrice),
		zap.Int("empty_name", rep.EmptyName),
		zap.Int("duplicates", rep.Duplicates),
	)
	if rep.Dropped() > 0 {
		lg.Warn("Catalog rows dropped", zap.Int("dropped", rep.Dropped()))
	}
	return c, nil
}
