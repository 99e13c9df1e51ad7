package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/country-explorer/internal/directory"
	"github.com/sakif/country-explorer/internal/middleware"
	"github.com/sakif/country-explorer/internal/model"
)

// retryAfterSeconds is sent with 503 responses while the directory loads.
const retryAfterSeconds = 5

// Directory is what the handlers need from directory.Cache.
type Directory interface {
	View(cr directory.Criteria) directory.View
	Lookup(ctx context.Context, code string) (*model.Country, error)
	Neighbors(ctx context.Context, country *model.Country) ([]model.Neighbor, error)
	Regions() []string
	LanguageOptions() []string
}

var _ Directory = (*directory.Cache)(nil)

// CountryHandler serves the directory API.
type CountryHandler struct {
	dir    Directory
	logger *slog.Logger
}

func NewCountryHandler(dir Directory, logger *slog.Logger) *CountryHandler {
	return &CountryHandler{dir: dir, logger: logger}
}

// ListResponse is the body of GET /api/countries once the directory is ready.
type ListResponse struct {
	Status    string          `json:"status"`
	Count     int             `json:"count"`
	Countries []model.Country `json:"countries"`
}

// DetailResponse is the body of GET /api/countries/{code}.
type DetailResponse struct {
	Country    *model.Country   `json:"country"`
	Neighbors  []model.Neighbor `json:"neighbors"`
	IsFavorite bool             `json:"isFavorite"`
}

// FiltersResponse lists the values the region and language filters accept.
type FiltersResponse struct {
	Regions   []string `json:"regions"`
	Languages []string `json:"languages"`
}

// criteriaFrom reads ?q=&region=&language=.
func criteriaFrom(r *http.Request) directory.Criteria {
	q := r.URL.Query()
	return directory.Criteria{
		Query:    q.Get("q"),
		Region:   q.Get("region"),
		Language: q.Get("language"),
	}
}

// HandleList returns the filtered directory.
//
// HTTP: GET /api/countries?q=&region=&language=
//
// THREE OUTCOMES:
//   - ready   → 200 with the matches (possibly none)
//   - loading → 503 {"status":"loading"} and Retry-After
//   - failed  → 503 load_failed with a message worth retrying on
func (h *CountryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	view := h.dir.View(criteriaFrom(r))

	switch view.Status {
	case directory.StatusReady:
		writeJSON(w, http.StatusOK, ListResponse{
			Status:    view.Status.String(),
			Count:     len(view.Countries),
			Countries: view.Countries,
		})
	case directory.StatusFailed:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeError(w, view.Err)
	default:
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": view.Status.String()})
	}
}

// HandleGet returns one country with its neighbors. The code may be alpha-3
// or alpha-2, in any case; a country missing from the index is fetched.
//
// HTTP: GET /api/countries/{code}
func (h *CountryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	country, neighbors, err := countryDetail(r.Context(), h.dir, h.logger, chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DetailResponse{
		Country:    country,
		Neighbors:  neighbors,
		IsFavorite: isFavorite(r, country.Code),
	})
}

// HandleFilters returns the region and language options.
//
// HTTP: GET /api/filters
func (h *CountryHandler) HandleFilters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, FiltersResponse{
		Regions:   h.dir.Regions(),
		Languages: h.dir.LanguageOptions(),
	})
}

// countryDetail looks up code and resolves its neighbors.
func countryDetail(ctx context.Context, dir Directory, logger *slog.Logger, code string) (*model.Country, []model.Neighbor, error) {
	country, err := dir.Lookup(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	neighbors, err := dir.Neighbors(ctx, country)
	if err != nil {
		// The country itself resolved; show it without neighbors.
		logger.Warn("resolving neighbors failed",
			slog.String("code", country.Code),
			slog.String("error", err.Error()),
		)
		neighbors = []model.Neighbor{}
	}
	return country, neighbors, nil
}

func isFavorite(r *http.Request, code string) bool {
	rs, ok := middleware.SessionFromContext(r.Context())
	return ok && rs.Favorites.Has(code)
}
