package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sakif/country-explorer/internal/auth"
	"github.com/sakif/country-explorer/internal/favorites"
	"github.com/sakif/country-explorer/internal/metrics"
	"github.com/sakif/country-explorer/internal/repository"
	"github.com/sakif/country-explorer/internal/session"
)

// contextKey is unexported so no other package can collide with our keys.
type contextKey string

const sessionKey contextKey = "session"

// SessionDeps are the process-wide pieces every request session is built
// from. Metrics may be nil.
type SessionDeps struct {
	KV           repository.KVStore
	Decoder      session.TokenDecoder
	Auth         session.Authenticator
	Metrics      *metrics.Metrics
	AuthTimeout  time.Duration
	SecureCookie bool
	Logger       *slog.Logger
}

// RequestSession is the session manager and favorites store of one request.
type RequestSession struct {
	Manager   *session.Manager
	Favorites *favorites.Store
}

// Session builds a RequestSession from the auth_token cookie and stores it
// in the request context. A bad or expired cookie is cleared and the
// request continues signed out.
func Session(deps SessionDeps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := favorites.NewStore(deps.KV, deps.Logger, deps.Metrics)
			mgr := session.NewManager(
				auth.NewCookieTokenStore(w, r, deps.SecureCookie),
				deps.Decoder,
				deps.Auth,
				deps.Logger,
				session.WithScope(store),
				session.WithMetrics(deps.Metrics),
				session.WithAuthTimeout(deps.AuthTimeout),
			)

			if err := mgr.Initialize(r.Context()); err != nil {
				// Signed in, but favorites could not be read. Handlers that
				// need them will see an empty set.
				deps.Logger.Warn("session initialised without favorites",
					slog.String("error", err.Error()),
				)
			}

			rs := &RequestSession{Manager: mgr, Favorites: store}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, rs)))
		})
	}
}

// SessionFromContext returns the RequestSession set by Session.
func SessionFromContext(ctx context.Context) (*RequestSession, bool) {
	rs, ok := ctx.Value(sessionKey).(*RequestSession)
	return rs, ok
}

// RequireSession answers 401 JSON when the request has no valid session.
// It must run after Session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs, ok := SessionFromContext(r.Context())
		if !ok {
			unauthorized(w, "Please log in to manage favorites.")
			return
		}
		if _, err := rs.Manager.RequireSession(); err != nil {
			unauthorized(w, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireLogin redirects signed-out browsers to loginPath with the
// requested path in ?next= so the login form can send them back.
func RequireLogin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs, ok := SessionFromContext(r.Context())
			if ok {
				if _, err := rs.Manager.RequireSession(); err == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
		})
	}
}

// unauthorized writes the handler.ErrorResponse shape.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
