package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures per-client request budgets.
//
// A request carrying a cookie named CookieName that SessionKnown accepts is
// counted against its session with budget Max. Every other request is
// counted against the client IP with budget NewClientMax. Such requests are
// the ones that start sessions, so NewClientMax also bounds how fast one IP
// can create them.
type RateLimitConfig struct {
	// Max is the budget per session and window. Zero disables limiting.
	Max int
	// NewClientMax is the budget per client IP for requests without a live
	// session. Zero uses Max.
	NewClientMax int
	// Window is the length of one counting window.
	Window time.Duration
	// CookieName names the session cookie. Empty keys every request by IP.
	CookieName string
	// SessionKnown reports whether a cookie value names a live session. Nil
	// trusts every non-empty cookie.
	SessionKnown func(id string) bool
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// counter holds request counts for the current and the previous window.
type counter struct {
	slot int64 // window index since the Unix epoch
	curr int
	prev int
}

// shift moves the counter to slot, dropping windows that are no longer
// adjacent.
func (c *counter) shift(slot int64) {
	switch slot - c.slot {
	case 0:
		return
	case 1:
		c.prev, c.curr = c.curr, 0
	default:
		c.prev, c.curr = 0, 0
	}
	c.slot = slot
}

type verdict struct {
	allowed   bool
	remaining int
	resetAt   time.Time
}

// limiter approximates a sliding window: the previous window counts in
// proportion to how much of it still falls inside the last Window.
type limiter struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
}

func newLimiter(window time.Duration, now func() time.Time) *limiter {
	if now == nil {
		now = time.Now
	}
	return &limiter{
		window:   window,
		now:      now,
		counters: make(map[string]*counter),
	}
}

func (l *limiter) slotOf(t time.Time) (slot int64, start time.Time) {
	slot = t.UnixNano() / int64(l.window)
	return slot, time.Unix(0, slot*int64(l.window))
}

// take spends one request of key's budget if any is left.
func (l *limiter) take(key string, budget int) verdict {
	now := l.now()
	slot, start := l.slotOf(now)
	weight := 1 - float64(now.Sub(start))/float64(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	if !ok {
		c = &counter{slot: slot}
		l.counters[key] = c
	}
	c.shift(slot)

	v := verdict{resetAt: start.Add(l.window)}
	used := float64(c.prev)*weight + float64(c.curr)
	if used >= float64(budget) {
		return v
	}
	c.curr++
	v.allowed = true
	v.remaining = max(budget-int(math.Ceil(used+1)), 0)
	return v
}

// sweep drops counters that no longer influence any decision.
func (l *limiter) sweep() int {
	slot, _ := l.slotOf(l.now())

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, c := range l.counters {
		if slot-c.slot > 1 {
			delete(l.counters, key)
			removed++
		}
	}
	return removed
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counters)
}

// RateLimit returns a middleware enforcing the budgets in cfg. Over-budget
// requests get 429 with a JSON body and Retry-After. Every response carries
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset.
//
// Stale counters are swept every other window until ctx is cancelled.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	if cfg.Max <= 0 || cfg.Window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.NewClientMax <= 0 {
		cfg.NewClientMax = cfg.Max
	}

	l := newLimiter(cfg.Window, cfg.Now)
	go func() {
		ticker := time.NewTicker(2 * cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, budget := cfg.key(r)
			v := l.take(key, budget)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(budget))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(v.resetAt.Unix(), 10))

			if !v.allowed {
				wait := v.resetAt.Sub(l.now())
				h.Set("Retry-After", strconv.Itoa(max(int(math.Ceil(wait.Seconds())), 1)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// key picks the counter and budget for r.
func (cfg *RateLimitConfig) key(r *http.Request) (string, int) {
	if cfg.CookieName != "" {
		if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
			if cfg.SessionKnown == nil || cfg.SessionKnown(c.Value) {
				return "session:" + c.Value, cfg.Max
			}
		}
	}
	return "ip:" + ClientIP(r), cfg.NewClientMax
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
