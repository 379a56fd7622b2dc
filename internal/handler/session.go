package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-kart/internal/session"
)

type sessionKey struct{}

// withSession resolves the session cookie, starting a new session when the
// cookie is absent, unknown or expired.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(h.cfg.CookieName); err == nil {
			id = c.Value
		}

		s, created, err := h.sessions.GetOrCreate(id)
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := zctx.With(r.Context(), zap.String("session_id", s.ID()))
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     h.cfg.CookieName,
				Value:    s.ID(),
				Path:     "/",
				HttpOnly: true,
				Secure:   h.cfg.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
			zctx.From(ctx).Debug("Session started")
		}

		ctx = context.WithValue(ctx, sessionKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	return ctx.Value(sessionKey{}).(*session.Session)
}
