// Package service holds the demo authentication backend.
//
// AuthService stands in for a remote auth API. It is the "server side" of
// the credential exchange that the session manager drives:
//
//	session.Manager → AuthService → AccountRepository (accounts table)
//	                             ↘ PasswordService (bcrypt)
//	                             ↘ TokenService (signed session token)
//
// DEMO RULES:
//   - One account is seeded on start: user@example.com / "password",
//     id 1234567890, shown as "Demo User".
//   - Register always succeeds. Emails are NOT deduplicated; a second
//     registration with the same email shadows the first at login.
//   - Every exchange waits a configurable delay first, like a slow network.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/auth"
	"github.com/sakif/country-explorer/internal/model"
	"github.com/sakif/country-explorer/internal/repository"
)

// The seeded demo account.
const (
	DemoUserID   = "1234567890"
	DemoEmail    = "user@example.com"
	DemoName     = "Demo User"
	DemoPassword = "password"
)

// MsgInvalidCredentials is the login failure shown to the user.
const MsgInvalidCredentials = "Invalid email or password"

// DefaultDelay mimics the round trip of a real auth API.
const DefaultDelay = 500 * time.Millisecond

// AuthService implements the credential exchange.
//
// DEPENDENCIES (injected via NewAuthService):
//   - accounts   repository.AccountRepository → credential records
//   - passwords  *auth.PasswordService        → bcrypt hashing
//   - tokens     *auth.TokenService           → token issuing
//   - logger     *slog.Logger                 → structured logging
type AuthService struct {
	accounts  repository.AccountRepository
	passwords *auth.PasswordService
	tokens    *auth.TokenService
	logger    *slog.Logger
	delay     time.Duration
	now       func() time.Time
}

// NewAuthService creates an AuthService. delay may be zero.
func NewAuthService(
	accounts repository.AccountRepository,
	passwords *auth.PasswordService,
	tokens *auth.TokenService,
	logger *slog.Logger,
	delay time.Duration,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		logger:    logger,
		delay:     delay,
		now:       time.Now,
	}
}

// SeedDemoAccount creates the demo account unless it already exists.
func (s *AuthService) SeedDemoAccount(ctx context.Context) error {
	_, err := s.accounts.GetByID(ctx, DemoUserID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking demo account: %w", err)
	}

	hash, err := s.passwords.Hash(DemoPassword)
	if err != nil {
		return fmt.Errorf("service/auth: hashing demo password: %w", err)
	}

	demo := &model.Account{
		ID:           DemoUserID,
		Email:        DemoEmail,
		Name:         DemoName,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, demo); err != nil {
		return fmt.Errorf("service/auth: creating demo account: %w", err)
	}

	s.logger.Info("demo account seeded", slog.String("email", DemoEmail))
	return nil
}

// Login checks email/password and issues a one-week token.
// Unknown email and wrong password both fail with MsgInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AuthGrant, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.AuthFailed(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(acc.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Info("login rejected", slog.String("email", email))
			return nil, apperror.AuthFailed(MsgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", acc.ID, err)
	}

	grant, err := s.tokens.Issue(acc.ID, acc.Email, acc.Name, auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", acc.ID, err)
	}
	return grant, nil
}

// Register stores a new account and signs it in.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.AuthGrant, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	acc := &model.Account{
		ID:           xid.New().String(),
		Email:        normalizeEmail(email),
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, acc); err != nil {
		return nil, fmt.Errorf("service/auth: creating account: %w", err)
	}

	s.logger.Info("account registered", slog.String("userID", acc.ID), slog.String("email", acc.Email))

	grant, err := s.tokens.Issue(acc.ID, acc.Email, acc.Name, auth.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for %s: %w", acc.ID, err)
	}
	return grant, nil
}

// wait sleeps for the configured delay unless ctx ends first.
func (s *AuthService) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("service/auth: exchange interrupted: %w", ctx.Err())
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
