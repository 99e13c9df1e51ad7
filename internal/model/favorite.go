package model

// FavoriteEntry is the simplified projection of a Country kept in a user's
// favorites. Only these four fields are persisted, which keeps the stored
// value small.
//
// The JSON shape is the storage format under the favorites_<userId> key.
type FavoriteEntry struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	FlagURL string `json:"flagUrl"`
	Region  string `json:"region"`
}

// AsFavorite projects c onto a FavoriteEntry.
func (c *Country) AsFavorite() FavoriteEntry {
	return FavoriteEntry{
		Code:    c.Code,
		Name:    c.CommonName,
		FlagURL: c.FlagURL,
		Region:  c.Region,
	}
}
