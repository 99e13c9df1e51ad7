package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/middleware"
	"github.com/sakif/country-explorer/internal/model"
	"github.com/sakif/country-explorer/internal/session"
)

// AuthHandler exposes login, registration and logout as JSON endpoints.
//
// All three act on the request's session.Manager (built by
// middleware.Session), which writes or expires the auth_token cookie.
type AuthHandler struct {
	logger *slog.Logger
}

func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes who is signed in.
type SessionResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *model.Session `json:"user,omitempty"`
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login {"email": "...", "password": "..."}
//
// Wrong credentials answer 401 auth_failed with "Invalid email or password".
// A session that existed before a failed attempt is left untouched.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	mgr, ok := managerFrom(w, r)
	if !ok {
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireFields(map[string]string{"email": req.Email, "password": req.Password}); err != nil {
		writeError(w, err)
		return
	}

	sess, err := mgr.Login(r.Context(), req.Email, req.Password)
	if err != nil && sess == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("signed in without favorites", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: true, User: sess})
}

// HandleRegister creates an account and signs it in. Emails are not
// checked for duplicates.
//
// HTTP: POST /auth/register {"name": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	mgr, ok := managerFrom(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := requireFields(map[string]string{"name": req.Name, "email": req.Email, "password": req.Password}); err != nil {
		writeError(w, err)
		return
	}

	sess, err := mgr.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil && sess == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		h.logger.Warn("registered without favorites", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusCreated, SessionResponse{Authenticated: true, User: sess})
}

// HandleLogout expires the cookie. Always 200, signed in or not.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	mgr, ok := managerFrom(w, r)
	if !ok {
		return
	}
	if err := mgr.Logout(r.Context()); err != nil {
		h.logger.Warn("logout: clearing token failed", slog.String("error", err.Error()))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe reports the current session. Signed-out callers get
// {"authenticated": false} rather than an error so a client can probe on
// start-up.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	mgr, ok := managerFrom(w, r)
	if !ok {
		return
	}
	sess := mgr.Current()
	writeJSON(w, http.StatusOK, SessionResponse{Authenticated: sess != nil, User: sess})
}

// managerFrom pulls the request's session manager, answering 500 when the
// Session middleware is missing from the chain.
func managerFrom(w http.ResponseWriter, r *http.Request) (*session.Manager, bool) {
	rs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, nil)
		return nil, false
	}
	return rs.Manager, true
}

// requireFields returns a validation error naming the first blank field,
// in a stable order.
func requireFields(fields map[string]string) error {
	for _, name := range []string{"name", "email", "password"} {
		v, ok := fields[name]
		if ok && strings.TrimSpace(v) == "" {
			return apperror.ValidationFailed(name, name+" is required")
		}
	}
	return nil
}
