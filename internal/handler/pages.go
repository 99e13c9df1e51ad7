// Package handler contains the HTTP handlers: the JSON API for countries,
// sessions and favorites, and the server-rendered pages.
//
// Handlers parse the request, call the directory or the request's session,
// and write the response. They hold no business rules of their own.
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/directory"
	"github.com/sakif/country-explorer/internal/middleware"
	"github.com/sakif/country-explorer/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// LoginPath is where signed-out browsers are sent.
const LoginPath = "/login"

// PageHandler renders the HTML pages.
//
// TEMPLATES:
// Each page is parsed together with base.html into its own template set, so
// every page can define "content" without clashing. Sets are parsed once in
// NewPageHandler and reused.
type PageHandler struct {
	pages  map[string]*template.Template
	dir    Directory
	logger *slog.Logger
}

// NewPageHandler parses the embedded templates.
func NewPageHandler(dir Directory, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home", "country", "login", "favorites"} {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &PageHandler{pages: pages, dir: dir, logger: logger}, nil
}

// HandleHome renders the filterable directory.
//
// HTTP: GET /?q=&region=&language=
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	view := h.dir.View(criteriaFrom(r))

	data := h.data(r, "Countries of the World")
	data["Criteria"] = view.Criteria
	data["Status"] = view.Status.String()
	data["Countries"] = view.Countries
	data["Regions"] = h.dir.Regions()
	data["Languages"] = h.dir.LanguageOptions()
	if view.Status == directory.StatusFailed {
		data["Error"] = messageOf(view.Err)
	}

	status := http.StatusOK
	if view.Status != directory.StatusReady {
		status = http.StatusServiceUnavailable
	}
	h.render(w, status, "home", data)
}

// HandleCountry renders one country with its neighbors.
//
// HTTP: GET /countries/{code}
func (h *PageHandler) HandleCountry(w http.ResponseWriter, r *http.Request) {
	country, neighbors, err := countryDetail(r.Context(), h.dir, h.logger, chi.URLParam(r, "code"))
	if err != nil {
		status, _ := errorStatus(err)
		http.Error(w, messageOf(err), status)
		return
	}

	data := h.data(r, country.CommonName)
	data["Country"] = country
	data["Neighbors"] = neighbors
	data["IsFavorite"] = isFavorite(r, country.Code)
	h.render(w, http.StatusOK, "country", data)
}

// HandleToggleFavorite adds or removes a country from the favorites and
// goes back to the page it came from (the detail page by default).
// Signed-out users are sent to log in first.
//
// HTTP: POST /countries/{code}/favorite
func (h *PageHandler) HandleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "code"))
	back := safeNext(r.FormValue("next"), "/countries/"+url.PathEscape(code))

	rs, ok := middleware.SessionFromContext(r.Context())
	if !ok || rs.Manager.Current() == nil {
		http.Redirect(w, r, LoginPath+"?next="+url.QueryEscape(back), http.StatusSeeOther)
		return
	}

	var err error
	if rs.Favorites.Has(code) {
		err = rs.Favorites.Remove(r.Context(), code)
	} else {
		var country *model.Country
		country, err = h.dir.Lookup(r.Context(), code)
		if err == nil {
			err = rs.Favorites.Add(r.Context(), country)
		}
	}
	if err != nil {
		status, _ := errorStatus(err)
		http.Error(w, messageOf(err), status)
		return
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

// HandleLoginPage renders the login form. ?next= is carried through the
// form so a successful login returns to the page that asked for it.
//
// HTTP: GET /login
func (h *PageHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := h.data(r, "Log in")
	data["Next"] = safeNext(r.URL.Query().Get("next"), "/")
	h.render(w, http.StatusOK, "login", data)
}

// HandleLoginSubmit signs in from the form and redirects to next. On
// failure the form is shown again with the error and the email kept.
//
// HTTP: POST /login (email, password, next)
func (h *PageHandler) HandleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.FormValue("next"), "/")
	email := r.FormValue("email")

	rs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	sess, err := rs.Manager.Login(r.Context(), email, r.FormValue("password"))
	if sess == nil {
		h.renderLoginError(w, r, err, email, next)
		return
	}
	if err != nil {
		h.logger.Warn("signed in without favorites", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleRegisterSubmit creates an account from the form and redirects to
// next.
//
// HTTP: POST /register (name, email, password, next)
func (h *PageHandler) HandleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.FormValue("next"), "/")
	name, email, password := r.FormValue("name"), r.FormValue("email"), r.FormValue("password")

	rs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := requireFields(map[string]string{"name": name, "email": email, "password": password}); err != nil {
		h.renderLoginError(w, r, err, email, next)
		return
	}

	sess, err := rs.Manager.Register(r.Context(), name, email, password)
	if sess == nil {
		h.renderLoginError(w, r, err, email, next)
		return
	}
	if err != nil {
		h.logger.Warn("registered without favorites", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleLogoutSubmit signs out and goes home.
//
// HTTP: POST /logout
func (h *PageHandler) HandleLogoutSubmit(w http.ResponseWriter, r *http.Request) {
	if rs, ok := middleware.SessionFromContext(r.Context()); ok {
		if err := rs.Manager.Logout(r.Context()); err != nil {
			h.logger.Warn("logout: clearing token failed", slog.String("error", err.Error()))
		}
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleFavorites renders the favorites list. The route is wrapped in
// middleware.RequireLogin, so a session always exists here.
//
// HTTP: GET /favorites
func (h *PageHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	data := h.data(r, "Your favorites")
	if rs, ok := middleware.SessionFromContext(r.Context()); ok {
		data["Favorites"] = rs.Favorites.Sorted()
	}
	h.render(w, http.StatusOK, "favorites", data)
}

func (h *PageHandler) renderLoginError(w http.ResponseWriter, r *http.Request, err error, email, next string) {
	status, _ := errorStatus(err)
	data := h.data(r, "Log in")
	data["Error"] = messageOf(err)
	data["Email"] = email
	data["Next"] = next
	h.render(w, status, "login", data)
}

// data starts every page's template data with the title and signed-in user.
func (h *PageHandler) data(r *http.Request, title string) map[string]any {
	data := map[string]any{"Title": title + " · Country Explorer"}
	if rs, ok := middleware.SessionFromContext(r.Context()); ok {
		if sess := rs.Manager.Current(); sess != nil {
			data["User"] = sess
		}
	}
	return data
}

// render executes into a buffer first so a template error can still turn
// into a clean 500 instead of a half-written page.
func (h *PageHandler) render(w http.ResponseWriter, status int, page string, data map[string]any) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// safeNext returns next when it is a local absolute path, fallback
// otherwise. Protocol-relative ("//host") and backslash forms are rejected
// because browsers treat them as other origins.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}

// messageOf returns the user-facing text of an apperror, or a generic line.
func messageOf(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong. Please try again."
}
