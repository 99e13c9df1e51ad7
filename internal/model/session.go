package model

import "time"

// Session is the logged-in identity decoded from (or issued with) a token.
// TokenExpiry is seconds since the Unix epoch, taken from the token's exp claim.
type Session struct {
	UserID      string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	TokenExpiry int64  `json:"tokenExpiry"`
}

// ExpiresAt returns TokenExpiry as a time.Time.
func (s *Session) ExpiresAt() time.Time {
	return time.Unix(s.TokenExpiry, 0)
}

// ValidAt reports whether the session's token is still usable at now.
// The expiry must be strictly in the future.
func (s *Session) ValidAt(now time.Time) bool {
	return s.TokenExpiry > now.Unix()
}

// AuthGrant is what a successful credential exchange hands back: the signed
// token to persist and the session it encodes.
type AuthGrant struct {
	Token   string
	Session Session
}
