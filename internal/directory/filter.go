package directory

import (
	"strings"

	"github.com/sakif/country-explorer/internal/model"
)

// Criteria are the filter inputs. Empty fields do not filter.
type Criteria struct {
	Query    string // case-insensitive substring of common name, official name or a capital
	Region   string // exact region
	Language string // exact language display name
}

// Matches reports whether country passes every non-empty criterion.
func (cr Criteria) Matches(country *model.Country) bool {
	if cr.Query != "" && !matchesQuery(country, strings.ToLower(cr.Query)) {
		return false
	}
	if cr.Region != "" && country.Region != cr.Region {
		return false
	}
	if cr.Language != "" && !country.SpeaksLanguage(cr.Language) {
		return false
	}
	return true
}

func matchesQuery(country *model.Country, q string) bool {
	if strings.Contains(strings.ToLower(country.CommonName), q) ||
		strings.Contains(strings.ToLower(country.OfficialName), q) {
		return true
	}
	for _, capital := range country.Capital {
		if strings.Contains(strings.ToLower(capital), q) {
			return true
		}
	}
	return false
}

// Apply returns the countries that match cr, in their input order.
// It never modifies countries and always returns a non-nil slice.
func Apply(countries []model.Country, cr Criteria) []model.Country {
	out := make([]model.Country, 0, len(countries))
	for i := range countries {
		if cr.Matches(&countries[i]) {
			out = append(out, countries[i])
		}
	}
	return out
}

// Status is the state of the directory behind a View.
type Status int

const (
	StatusLoading Status = iota
	StatusFailed
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusFailed:
		return "load_failed"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// View is the filtered directory. Countries is only meaningful when Status
// is StatusReady, where an empty slice means "no matches". Err carries the
// sticky load failure when Status is StatusFailed.
type View struct {
	Status    Status
	Criteria  Criteria
	Countries []model.Country
	Err       error
}

// View derives the filtered view for cr from the current directory.
func (c *Cache) View(cr Criteria) View {
	c.mu.RLock()
	loaded, loadErr, countries := c.loaded, c.loadErr, c.countries
	c.mu.RUnlock()

	switch {
	case loaded:
		return View{Status: StatusReady, Criteria: cr, Countries: Apply(countries, cr)}
	case loadErr != nil:
		return View{Status: StatusFailed, Criteria: cr, Err: loadErr}
	default:
		return View{Status: StatusLoading, Criteria: cr}
	}
}
