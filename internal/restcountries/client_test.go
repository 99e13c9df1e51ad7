package restcountries

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/country-explorer/internal/apperror"
)

const franceJSON = `{
	"name": {
		"common": "France",
		"official": "French Republic",
		"nativeName": {"fra": {"common": "France", "official": "République française"}}
	},
	"cca3": "FRA",
	"cca2": "FR",
	"capital": ["Paris"],
	"region": "Europe",
	"subregion": "Western Europe",
	"population": 67391582,
	"languages": {"fra": "French"},
	"currencies": {"EUR": {"name": "Euro", "symbol": "€"}},
	"borders": ["AND", "BEL", "DEU"],
	"tld": [".fr"],
	"unMember": true,
	"flags": {"png": "https://flagcdn.com/w320/fr.png", "svg": "https://flagcdn.com/fr.svg"},
	"maps": {"googleMaps": "https://goo.gl/maps/g7QxxSFsWyTPKuzd7"},
	"car": {"side": "right"}
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, RetryBackoff: time.Millisecond}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(c.Close)
	return c
}

// =========================================================================
// FETCH ALL TESTS
// =========================================================================

func TestFetchAll(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/all", r.URL.Path)
		gotQuery = r.URL.Query().Get("fields")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[`+franceJSON+`, {"name": {"common": "Nowhere"}}]`)
	})

	countries, err := c.FetchAll(context.Background())
	require.NoError(t, err)

	// Records without a cca3 cannot be indexed and are dropped.
	require.Len(t, countries, 1)
	fr := countries[0]
	assert.Equal(t, "FRA", fr.Code)
	assert.Equal(t, "FR", fr.Alpha2Code)
	assert.Equal(t, "French Republic", fr.OfficialName)
	assert.Equal(t, "https://flagcdn.com/fr.svg", fr.FlagURL)
	assert.Equal(t, "République française", fr.NativeNames["fra"].Official)
	assert.Equal(t, "€", fr.Currencies["EUR"].Symbol)
	assert.Equal(t, "right", fr.DrivingSide)
	assert.True(t, fr.SpeaksLanguage("French"))
	assert.Contains(t, gotQuery, "cca3")
}

func TestFetchAll_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `[`+franceJSON+`]`)
	})

	countries, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, countries, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchAll_GivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.FetchAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRemote))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchAll_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{not json`)
	})

	_, err := c.FetchAll(context.Background())
	assert.Error(t, err)
}

// =========================================================================
// FETCH BY CODE TESTS
// =========================================================================

func TestFetchByCode(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"array response", `[` + franceJSON + `]`},
		{"object response", franceJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/alpha/fr", r.URL.Path)
				io.WriteString(w, tt.body)
			})

			country, err := c.FetchByCode(context.Background(), "fr")
			require.NoError(t, err)
			assert.Equal(t, "FRA", country.Code)
			assert.Equal(t, []string{"AND", "BEL", "DEU"}, country.Borders)
		})
	}
}

func TestFetchByCode_NotFound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"status":404,"message":"Not Found"}`, http.StatusNotFound)
	})

	_, err := c.FetchByCode(context.Background(), "XYZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.False(t, errors.Is(err, apperror.ErrRemote))
	// Absence is an answer, not a failure: no retries.
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchByCode_BadRequestIsRemote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.FetchByCode(context.Background(), "!!")
	assert.True(t, errors.Is(err, apperror.ErrRemote))
	assert.False(t, errors.Is(err, apperror.ErrNotFound))
}

func TestFetchByCode_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url, RetryBackoff: time.Millisecond}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer c.Close()

	_, err := c.FetchByCode(context.Background(), "FRA")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRemote))
}
