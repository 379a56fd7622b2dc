package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (POS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	CatalogPath string `default:"vendas_arredondado.csv" usage:"Catalog CSV file, optionally gzipped" flag:"catalog-path"`
	DatabaseURL string `usage:"PostgreSQL URL for the order archive (POS_DATABASE_URL or DATABASE_URL); empty disables archiving" flag:"database-url"`
	Share       ShareConfig
	Session     SessionConfig
	Query       QueryConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// ShareConfig controls order share links.
type ShareConfig struct {
	BaseURL string `default:"https://wa.me/" usage:"Base URL of share links" flag:"share-base-url"`
}

// SessionConfig controls POS sessions and their cookie.
type SessionConfig struct {
	TTL             time.Duration `default:"12h" usage:"Idle time after which a session is dropped; 0 keeps sessions forever"`
	CleanupInterval time.Duration `default:"5m" usage:"How often idle sessions are evicted" flag:"session-cleanup-interval"`
	MaxSessions     int           `default:"10000" usage:"Maximum live sessions; 0 means unlimited" flag:"session-max"`
	CookieName      string        `default:"pos_session" usage:"Session cookie name" flag:"session-cookie-name"`
	Secure          bool          `default:"false" usage:"Set the Secure attribute on the session cookie" flag:"session-secure"`
}

// QueryConfig controls the CSV query endpoint.
type QueryConfig struct {
	NameColumn     string `default:"Nome" usage:"Column filtered by the name query" flag:"query-name-column"`
	ProductColumn  string `default:"Produto" usage:"Column filtered by the product query" flag:"query-product-column"`
	MaxUploadBytes int64  `default:"33554432" usage:"Maximum CSV upload size in bytes" flag:"query-max-upload-bytes"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
// Requests carrying a live session cookie are counted per session; the rest
// per client IP against NewClientMax.
type RateLimitConfig struct {
	Max          int           `default:"300" usage:"Max requests per session per window; 0 disables rate limiting"`
	NewClientMax int           `default:"30"  usage:"Max requests per window from an IP without a session" flag:"rate-limit-new-client-max"`
	Window       time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Send the session cookie cross-origin; needs an explicit origin list" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "POS",
		Files:     []string{"config.yaml", "/etc/pos/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.CatalogPath == "":
		return errors.New("catalog path is required: set POS_CATALOG_PATH")
	case c.Session.TTL < 0:
		return errors.Errorf("session TTL must not be negative, got %s", c.Session.TTL)
	case c.Session.CookieName == "":
		return errors.New("session cookie name must not be empty")
	case c.Session.MaxSessions < 0:
		return errors.Errorf("session cap must not be negative, got %d", c.Session.MaxSessions)
	case c.Query.MaxUploadBytes <= 0:
		return errors.Errorf("query upload limit must be positive, got %d", c.Query.MaxUploadBytes)
	case c.RateLimit.NewClientMax < 0:
		return errors.Errorf("new client rate limit must not be negative, got %d", c.RateLimit.NewClientMax)
	case c.CORS.AllowCredentials && !explicitOrigins(c.CORS.Origins):
		return errors.New("CORS credentials need an explicit origin list: set POS_CORS_ORIGINS")
	}
	return nil
}

func explicitOrigins(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		if o == "*" {
			return false
		}
	}
	return true
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's POS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
