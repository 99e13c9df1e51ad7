package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/favorites"
	"github.com/sakif/country-explorer/internal/middleware"
	"github.com/sakif/country-explorer/internal/model"
)

// FavoritesHandler manages the signed-in user's favorites.
//
// Every route sits behind middleware.RequireSession, so the request's
// favorites store is always active here.
type FavoritesHandler struct {
	dir    Directory
	logger *slog.Logger
}

func NewFavoritesHandler(dir Directory, logger *slog.Logger) *FavoritesHandler {
	return &FavoritesHandler{dir: dir, logger: logger}
}

// FavoritesResponse lists favorites ordered by name.
type FavoritesResponse struct {
	Count     int                   `json:"count"`
	Favorites []model.FavoriteEntry `json:"favorites"`
}

type addFavoriteRequest struct {
	Code string `json:"code"`
}

// HandleList returns the favorites sorted by name.
//
// HTTP: GET /api/favorites
func (h *FavoritesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, listOf(store))
}

// HandleAdd resolves the code through the directory and adds the country.
// Adding an existing favorite is a no-op and answers 200 instead of 201.
//
// HTTP: POST /api/favorites {"code": "FRA"}
func (h *FavoritesHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFrom(w, r)
	if !ok {
		return
	}

	var req addFavoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, apperror.ValidationFailed("code", "code is required"))
		return
	}

	country, err := h.dir.Lookup(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if store.Has(country.Code) {
		status = http.StatusOK
	}
	if err := store.Add(r.Context(), country); err != nil {
		h.logger.Error("adding favorite failed",
			slog.String("code", country.Code),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, status, listOf(store))
}

// HandleRemove deletes a favorite. Removing a code that is not a favorite
// still answers 200 with the unchanged list.
//
// HTTP: DELETE /api/favorites/{code}
func (h *FavoritesHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	store, ok := storeFrom(w, r)
	if !ok {
		return
	}

	code := strings.ToUpper(chi.URLParam(r, "code"))
	if err := store.Remove(r.Context(), code); err != nil {
		h.logger.Error("removing favorite failed",
			slog.String("code", code),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listOf(store))
}

func listOf(store *favorites.Store) FavoritesResponse {
	entries := store.Sorted()
	return FavoritesResponse{Count: len(entries), Favorites: entries}
}

func storeFrom(w http.ResponseWriter, r *http.Request) (*favorites.Store, bool) {
	rs, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, nil)
		return nil, false
	}
	return rs.Favorites, true
}
