package restcountries

import (
	"strings"

	"github.com/sakif/country-explorer/internal/model"
)

// allFields is the projection requested from /all. The API caps the
// fields parameter at ten entries, so this is the set the list, the
// filters and the detail header need. Currencies, TLDs, maps and driving
// side arrive only through /alpha lookups.
var allFields = []string{
	"name", "cca3", "cca2", "capital", "region",
	"subregion", "population", "flags", "languages", "borders",
}

// apiCountry is one record as returned by REST Countries v3.1.
type apiCountry struct {
	Name struct {
		Common     string `json:"common"`
		Official   string `json:"official"`
		NativeName map[string]struct {
			Common   string `json:"common"`
			Official string `json:"official"`
		} `json:"nativeName"`
	} `json:"name"`
	CCA3       string            `json:"cca3"`
	CCA2       string            `json:"cca2"`
	Capital    []string          `json:"capital"`
	Region     string            `json:"region"`
	Subregion  string            `json:"subregion"`
	Population int64             `json:"population"`
	Languages  map[string]string `json:"languages"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Borders  []string `json:"borders"`
	TLD      []string `json:"tld"`
	UNMember bool     `json:"unMember"`
	Flags    struct {
		PNG string `json:"png"`
		SVG string `json:"svg"`
	} `json:"flags"`
	Maps struct {
		GoogleMaps string `json:"googleMaps"`
	} `json:"maps"`
	Car struct {
		Side string `json:"side"`
	} `json:"car"`
}

// toModel maps the wire record onto model.Country. Codes are upper-cased
// so the directory index can rely on one spelling.
func (a *apiCountry) toModel() model.Country {
	c := model.Country{
		Code:            strings.ToUpper(a.CCA3),
		Alpha2Code:      strings.ToUpper(a.CCA2),
		CommonName:      a.Name.Common,
		OfficialName:    a.Name.Official,
		Capital:         a.Capital,
		Region:          a.Region,
		Subregion:       a.Subregion,
		Population:      a.Population,
		FlagURL:         a.Flags.SVG,
		Languages:       a.Languages,
		Borders:         a.Borders,
		TopLevelDomains: a.TLD,
		MapsURL:         a.Maps.GoogleMaps,
		DrivingSide:     a.Car.Side,
		IsUNMember:      a.UNMember,
	}
	if c.FlagURL == "" {
		c.FlagURL = a.Flags.PNG
	}
	if c.Population < 0 {
		c.Population = 0
	}
	if len(a.Name.NativeName) > 0 {
		c.NativeNames = make(map[string]model.NativeName, len(a.Name.NativeName))
		for tag, n := range a.Name.NativeName {
			c.NativeNames[tag] = model.NativeName{Common: n.Common, Official: n.Official}
		}
	}
	if len(a.Currencies) > 0 {
		c.Currencies = make(map[string]model.Currency, len(a.Currencies))
		for code, cur := range a.Currencies {
			c.Currencies[code] = model.Currency{Name: cur.Name, Symbol: cur.Symbol}
		}
	}
	return c
}
