package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-kart/internal/domain/catalog"
)

var (
	// ErrNotFound is returned for an unknown or expired session id.
	ErrNotFound = errors.New("session not found")
	// ErrStoreFull is returned by GetOrCreate when MaxSessions live sessions
	// already exist.
	ErrStoreFull = errors.New("too many active sessions")
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// TTL is how long an idle session survives. Zero disables expiry.
	TTL time.Duration
	// MaxSessions caps the live sessions GetOrCreate may start. Zero means
	// no cap.
	MaxSessions int
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
	// NewID overrides id generation for sessions and orders. Defaults to
	// random UUIDs.
	NewID func() string
}

// Store owns every live session. Each session starts with its own copy of
// the base catalog.
type Store struct {
	base *catalog.Catalog
	ttl  time.Duration
	max  int
	env  env

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a Store whose sessions start from base.
func NewStore(base *catalog.Catalog, cfg StoreConfig) *Store {
	e := defaultEnv()
	if cfg.Now != nil {
		e.now = cfg.Now
	}
	if cfg.NewID != nil {
		e.newID = cfg.NewID
	}
	return &Store{
		base:     base,
		ttl:      cfg.TTL,
		max:      cfg.MaxSessions,
		env:      e,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session. It ignores MaxSessions.
func (st *Store) Create() *Session {
	s := newSession(st.env.newID(), st.base, st.env)

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if st.expired(s, st.env.now()) {
		st.Delete(id)
		return nil, ErrNotFound
	}
	s.touch()
	return s, nil
}

// Exists reports whether id names a live session. Unlike Get it does not
// mark the session as used.
func (st *Store) Exists(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	return ok && !st.expired(s, st.env.now())
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
// created reports which happened. When the store is at MaxSessions, idle
// sessions are evicted first and ErrStoreFull is returned if none were.
func (st *Store) GetOrCreate(id string) (s *Session, created bool, err error) {
	if id != "" {
		if s, err := st.Get(id); err == nil {
			return s, false, nil
		}
	}

	s = newSession(st.env.newID(), st.base, st.env)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.max > 0 && len(st.sessions) >= st.max {
		st.evictLocked(st.env.now())
		if len(st.sessions) >= st.max {
			return nil, false, ErrStoreFull
		}
	}
	st.sessions[s.id] = s
	return s, true, nil
}

// Delete ends a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of sessions held.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Cleanup evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Cleanup(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.evictLocked(now)
}

func (st *Store) evictLocked(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}
	removed := 0
	for id, s := range st.sessions {
		if st.expired(s, now) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// StartCleanup evicts idle sessions every interval until ctx is cancelled.
// onEvict, when set, receives the number of sessions removed in each pass.
func (st *Store) StartCleanup(ctx context.Context, interval time.Duration, onEvict func(n int)) {
	if st.ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := st.Cleanup(now); n > 0 && onEvict != nil {
					onEvict(n)
				}
			}
		}
	}()
}

func (st *Store) expired(s *Session, now time.Time) bool {
	return st.ttl > 0 && s.idleSince(now) >= st.ttl
}
