// Package auth issues and decodes the session tokens and persists them in
// the browser cookie.
//
// TOKEN FORMAT:
// A session token is an HS256 JWT carrying everything needed to rebuild the
// session locally, with no lookup:
//
//	{"sub":"1234567890","email":"user@example.com","name":"Demo User",
//	 "exp":1767225600,"iat":1766620800,"iss":"country-explorer"}
//
// The signature is checked on decode, so a tampered token is rejected.
// Expiry is NOT checked here: the session manager compares exp against its
// own clock so the "strictly after now" rule lives in one place.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/country-explorer/internal/model"
)

// SessionTTL is the fixed lifetime of every issued token (one week).
const SessionTTL = 7 * 24 * time.Hour

const issuer = "country-explorer"

// DefaultDisplayName stands in for a token that carries no name.
const DefaultDisplayName = "User"

// TokenService signs and decodes session tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// WithClock replaces the clock used for iat/exp. Tests use it to mint
// tokens that are already expired.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// claims is the JWT payload: registered claims plus the profile fields.
type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Issue signs a token for the given identity that expires after ttl.
// It returns the token together with the session it encodes.
func (s *TokenService) Issue(userID, email, name string, ttl time.Duration) (*model.AuthGrant, error) {
	if userID == "" {
		return nil, errors.New("auth: cannot issue a token without a subject")
	}

	now := s.now()
	expiresAt := jwt.NewNumericDate(now.Add(ttl))

	c := claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("auth: signing token: %w", err)
	}

	return &model.AuthGrant{
		Token: signed,
		Session: model.Session{
			UserID:      userID,
			Email:       email,
			DisplayName: name,
			TokenExpiry: expiresAt.Unix(),
		},
	}, nil
}

// Decode verifies the signature of tokenStr and returns the session it
// carries. An expired token decodes successfully; callers check
// Session.ValidAt themselves.
//
// ALGORITHM CONFUSION:
// jwt.WithValidMethods pins HS256 so a token claiming "none" (or an RSA
// algorithm keyed with our secret) is rejected before the key is used.
func (s *TokenService) Decode(tokenStr string) (*model.Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Issuer != issuer {
		return nil, fmt.Errorf("auth: unexpected issuer %q", c.Issuer)
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	if c.ExpiresAt == nil {
		return nil, errors.New("auth: token has no expiry")
	}

	name := c.Name
	if name == "" {
		name = DefaultDisplayName
	}

	return &model.Session{
		UserID:      c.Subject,
		Email:       c.Email,
		DisplayName: name,
		TokenExpiry: c.ExpiresAt.Unix(),
	}, nil
}
