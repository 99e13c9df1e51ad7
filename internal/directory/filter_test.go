package directory

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/country-explorer/internal/model"
)

func codes(countries []model.Country) []string {
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		out = append(out, c.Code)
	}
	return out
}

func TestApply_Scenario(t *testing.T) {
	dir := []model.Country{usa, fra}

	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"query", Criteria{Query: "united"}, []string{"USA"}},
		{"region", Criteria{Region: "Europe"}, []string{"FRA"}},
		{"language", Criteria{Language: "English"}, []string{"USA"}},
		{"no criteria", Criteria{}, []string{"USA", "FRA"}},
		{"no match", Criteria{Query: "united", Region: "Europe"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Apply(dir, tt.criteria)))
		})
	}
}

func TestApply_QueryFields(t *testing.T) {
	ct := model.Country{
		Code:         "GBR",
		CommonName:   "United Kingdom",
		OfficialName: "United Kingdom of Great Britain and Northern Ireland",
		Capital:      []string{"London"},
	}

	for _, q := range []string{"KINGDOM", "northern", "lond"} {
		assert.True(t, Criteria{Query: q}.Matches(&ct), q)
	}
	assert.False(t, Criteria{Query: "paris"}.Matches(&ct))
	// Region and language are exact, not substring, matches.
	assert.False(t, Criteria{Region: "Euro"}.Matches(&model.Country{Region: "Europe"}))
	assert.False(t, Criteria{Language: "Eng"}.Matches(&usa))
}

func TestApply_Idempotent(t *testing.T) {
	dir := []model.Country{and, bel, fra, deu, jpn, usa}
	cr := Criteria{Region: "Europe", Language: "French"}

	once := Apply(dir, cr)
	twice := Apply(once, cr)
	assert.Equal(t, codes(once), codes(twice))
	assert.Equal(t, []string{"BEL", "FRA"}, codes(once))
}

func TestApply_SameSetRegardlessOfInputOrder(t *testing.T) {
	dir := []model.Country{and, bel, fra, deu, jpn, usa}
	cr := Criteria{Query: "an"}
	want := codes(Apply(dir, cr))

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		shuffled := append([]model.Country(nil), dir...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := codes(Apply(shuffled, cr))
		assert.ElementsMatch(t, want, got)
		// Output follows the input order.
		assert.Equal(t, codes(Apply(shuffled, cr)), got)
	}
}

func TestView_States(t *testing.T) {
	src := newFakeSource(usa, fra)
	c := NewCache(src, discardLogger())

	loading := c.View(Criteria{Query: "united"})
	assert.Equal(t, StatusLoading, loading.Status)
	assert.Nil(t, loading.Countries)

	require.NoError(t, c.LoadAll(context.Background()))

	ready := c.View(Criteria{Query: "united"})
	assert.Equal(t, StatusReady, ready.Status)
	assert.Equal(t, []string{"USA"}, codes(ready.Countries))

	empty := c.View(Criteria{Query: "atlantis"})
	assert.Equal(t, StatusReady, empty.Status)
	assert.NotNil(t, empty.Countries)
	assert.Empty(t, empty.Countries)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "load_failed", StatusFailed.String())
	assert.Equal(t, "ready", StatusReady.String())
}
