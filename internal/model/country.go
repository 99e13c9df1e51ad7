// Package model defines the data structures shared by the directory, the
// favorites store and the session layer. The types carry no behaviour beyond
// small projections; storage and transport live in their own packages.
package model

import (
	"maps"
	"slices"
)

// Country is one directory record. It is never modified after it has been
// fetched; code that needs a different shape builds a projection instead
// (see FavoriteEntry).
//
// Code is the ISO 3166-1 alpha-3 code ("FRA") and is the unique key of the
// directory. Alpha2Code ("FR") is accepted as an alias by lookups.
type Country struct {
	Code            string                `json:"code"`
	Alpha2Code      string                `json:"alpha2Code,omitempty"`
	CommonName      string                `json:"commonName"`
	OfficialName    string                `json:"officialName"`
	NativeNames     map[string]NativeName `json:"nativeNames,omitempty"` // language tag → name
	Capital         []string              `json:"capital"`
	Region          string                `json:"region"`
	Subregion       string                `json:"subregion"`
	Population      int64                 `json:"population"`
	FlagURL         string                `json:"flagUrl"`
	Languages       map[string]string     `json:"languages,omitempty"` // language code → display name
	Currencies      map[string]Currency   `json:"currencies,omitempty"`
	Borders         []string              `json:"borders"`
	TopLevelDomains []string              `json:"topLevelDomains,omitempty"`
	MapsURL         string                `json:"mapsUrl,omitempty"`
	DrivingSide     string                `json:"drivingSide,omitempty"`
	IsUNMember      bool                  `json:"isUnMember"`
}

// NativeName is a country's name in one of its own languages.
type NativeName struct {
	Common   string `json:"common"`
	Official string `json:"official"`
}

// Currency is a legal tender entry keyed by its ISO 4217 code.
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// SpeaksLanguage reports whether any of the country's language display names
// is exactly name.
func (c *Country) SpeaksLanguage(name string) bool {
	for _, lang := range c.Languages {
		if lang == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of c.
func (c *Country) Clone() *Country {
	out := *c
	out.NativeNames = maps.Clone(c.NativeNames)
	out.Capital = slices.Clone(c.Capital)
	out.Languages = maps.Clone(c.Languages)
	out.Currencies = maps.Clone(c.Currencies)
	out.Borders = slices.Clone(c.Borders)
	out.TopLevelDomains = slices.Clone(c.TopLevelDomains)
	return &out
}

// Neighbor is the slim view of a bordering country shown on a detail page.
type Neighbor struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	FlagURL string `json:"flagUrl"`
}

// AsNeighbor projects c onto a Neighbor.
func (c *Country) AsNeighbor() Neighbor {
	return Neighbor{Code: c.Code, Name: c.CommonName, FlagURL: c.FlagURL}
}
