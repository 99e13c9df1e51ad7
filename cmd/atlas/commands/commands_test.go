package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakeCountries = map[string]string{
	"FRA": `{"name":{"common":"France","official":"French Republic"},"cca3":"FRA","cca2":"FR",
		"capital":["Paris"],"region":"Europe","subregion":"Western Europe","population":67391582,
		"languages":{"fra":"French"},"borders":["DEU"],"flags":{"svg":"https://flagcdn.com/fr.svg"}}`,
	"DEU": `{"name":{"common":"Germany","official":"Federal Republic of Germany"},"cca3":"DEU","cca2":"DE",
		"capital":["Berlin"],"region":"Europe","subregion":"Western Europe","population":83240525,
		"languages":{"deu":"German"},"borders":["FRA"],"flags":{"svg":"https://flagcdn.com/de.svg"}}`,
	"USA": `{"name":{"common":"United States","official":"United States of America"},"cca3":"USA","cca2":"US",
		"capital":["Washington, D.C."],"region":"Americas","population":329484123,
		"languages":{"eng":"English"},"borders":["CAN","MEX"],"flags":{"svg":"https://flagcdn.com/us.svg"}}`,
}

// newFakeAPI serves /all and /alpha/{code} from fakeCountries.
func newFakeAPI(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/all":
			all := make([]string, 0, len(fakeCountries))
			for _, c := range fakeCountries {
				all = append(all, c)
			}
			io.WriteString(w, "["+strings.Join(all, ",")+"]")
		case strings.HasPrefix(r.URL.Path, "/alpha/"):
			code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/alpha/"))
			for key, c := range fakeCountries {
				if key == code || key[:2] == code {
					io.WriteString(w, "["+c+"]")
					return
				}
			}
			http.Error(w, `{"status":404,"message":"Not Found"}`, http.StatusNotFound)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// atlas runs one CLI invocation against home and the fake API.
func atlas(t *testing.T, home, baseURL string, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	defer a.close()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--home", home, "--base-url", baseURL}, args...))
	err := root.Execute()
	return out.String(), err
}

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_DELAY", "0s")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("KV_BACKEND", "sqlite")
	t.Setenv("RESTCOUNTRIES_RATE_PER_MINUTE", "60000")
}

func TestCountriesAndShow(t *testing.T) {
	setTestEnv(t)
	home, api := t.TempDir(), newFakeAPI(t)

	out, err := atlas(t, home, api, "countries", "--region", "Europe")
	require.NoError(t, err)
	assert.Contains(t, out, "France")
	assert.Contains(t, out, "Germany")
	assert.NotContains(t, out, "United States")
	assert.Contains(t, out, "2 countries")

	out, err = atlas(t, home, api, "countries", "--query", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No countries match")

	out, err = atlas(t, home, api, "show", "fr")
	require.NoError(t, err)
	assert.Contains(t, out, "France (FRA)")
	assert.Contains(t, out, "Germany (DEU)")

	_, err = atlas(t, home, api, "show", "XYZ")
	assert.Error(t, err)
}

func TestSessionAndFavoritesPersistAcrossRuns(t *testing.T) {
	setTestEnv(t)
	home, api := t.TempDir(), newFakeAPI(t)

	out, err := atlas(t, home, api, "favorites", "list")
	require.Error(t, err)
	assert.Contains(t, out, "Please log in to manage favorites.")

	out, err = atlas(t, home, api, "login", "user@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, out, "Invalid email or password")

	out, err = atlas(t, home, api, "login", "user@example.com", "password")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Demo User <user@example.com>")

	out, err = atlas(t, home, api, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Demo User <user@example.com>")

	out, err = atlas(t, home, api, "favorites", "add", "deu")
	require.NoError(t, err)
	assert.Contains(t, out, "Added Germany.")

	out, err = atlas(t, home, api, "favorites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "DEU  Germany (Europe)")

	out, err = atlas(t, home, api, "show", "DEU")
	require.NoError(t, err)
	assert.Contains(t, out, "Germany (DEU) ★")

	_, err = atlas(t, home, api, "favorites", "remove", "DEU")
	require.NoError(t, err)
	out, err = atlas(t, home, api, "favorites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No favorites yet.")

	_, err = atlas(t, home, api, "logout")
	require.NoError(t, err)
	out, err = atlas(t, home, api, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not signed in.")
}

func TestRegisterStartsWithEmptyFavorites(t *testing.T) {
	setTestEnv(t)
	home, api := t.TempDir(), newFakeAPI(t)

	_, err := atlas(t, home, api, "login", "user@example.com", "password")
	require.NoError(t, err)
	_, err = atlas(t, home, api, "favorites", "add", "FRA")
	require.NoError(t, err)

	out, err := atlas(t, home, api, "register", "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Ada.")

	out, err = atlas(t, home, api, "favorites", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No favorites yet.", "favorites are per user")
}
