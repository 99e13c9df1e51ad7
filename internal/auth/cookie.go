package auth

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the cookie (and KV key) that holds the session token.
const CookieName = "auth_token"

// CookieTokenStore persists the session token in the auth_token cookie.
//
// It is built per request: Load reads the incoming cookie, Save and Clear
// write Set-Cookie headers on the response. Within one request, Load
// reflects the latest Save/Clear so a handler that logs in and then reads
// the session sees the new token.
//
// COOKIE ATTRIBUTES:
//   - Path "/"              → sent to every route, including /favorites
//   - Max-Age one week      → matches SessionTTL
//   - SameSite Strict       → never sent on cross-site navigations
//   - HttpOnly              → unreadable from page scripts
type CookieTokenStore struct {
	w      http.ResponseWriter
	r      *http.Request
	secure bool

	written bool
	value   string
}

// NewCookieTokenStore binds a store to one request/response pair.
// secure sets the Secure attribute (enable behind HTTPS).
func NewCookieTokenStore(w http.ResponseWriter, r *http.Request, secure bool) *CookieTokenStore {
	return &CookieTokenStore{w: w, r: r, secure: secure}
}

// Load returns the token, or "" when the request carries none.
func (c *CookieTokenStore) Load(_ context.Context) (string, error) {
	if c.written {
		return c.value, nil
	}
	cookie, err := c.r.Cookie(CookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous request, not a failure.
		return "", nil
	}
	return cookie.Value, nil
}

// Save sets the cookie to token.
func (c *CookieTokenStore) Save(_ context.Context, token string) error {
	http.SetCookie(c.w, c.cookie(token, int(SessionTTL/time.Second)))
	c.written, c.value = true, token
	return nil
}

// Clear expires the cookie in the browser.
func (c *CookieTokenStore) Clear(_ context.Context) error {
	http.SetCookie(c.w, c.cookie("", -1))
	c.written, c.value = true, ""
	return nil
}

func (c *CookieTokenStore) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
