package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/auth"
	"github.com/sakif/country-explorer/internal/model"
	"github.com/sakif/country-explorer/internal/repository/memory"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// brokenAccounts fails every call, simulating a database outage.
type brokenAccounts struct{}

func (brokenAccounts) Create(context.Context, *model.Account) error {
	return errors.New("database is on fire")
}

func (brokenAccounts) GetByEmail(context.Context, string) (*model.Account, error) {
	return nil, errors.New("database is on fire")
}

func (brokenAccounts) GetByID(context.Context, string) (*model.Account, error) {
	return nil, errors.New("database is on fire")
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestAuthService returns a seeded service with no artificial delay.
func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewAuthService(memory.NewAccounts(), auth.NewPasswordServiceForTest(bcrypt.MinCost), newTestTokens(t), logger, 0)
	if err := svc.SeedDemoAccount(context.Background()); err != nil {
		t.Fatalf("SeedDemoAccount: %v", err)
	}
	return svc
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_DemoAccount(t *testing.T) {
	svc := newTestAuthService(t)

	grant, err := svc.Login(context.Background(), "user@example.com", "password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if grant.Session.DisplayName != "Demo User" {
		t.Errorf("DisplayName = %q, want %q", grant.Session.DisplayName, "Demo User")
	}
	if grant.Session.UserID != DemoUserID {
		t.Errorf("UserID = %q, want %q", grant.Session.UserID, DemoUserID)
	}

	// The token lasts one week.
	wantExpiry := time.Now().Add(auth.SessionTTL).Unix()
	if diff := grant.Session.TokenExpiry - wantExpiry; diff < -5 || diff > 5 {
		t.Errorf("TokenExpiry off by %ds from one week", diff)
	}

	decoded, err := newTestTokens(t).Decode(grant.Token)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if *decoded != grant.Session {
		t.Errorf("decoded session = %+v, want %+v", *decoded, grant.Session)
	}
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	svc := newTestAuthService(t)

	if _, err := svc.Login(context.Background(), "  User@Example.com ", "password"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newTestAuthService(t)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "user@example.com", "wrong"},
		{"unknown email", "nobody@example.com", "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			if !errors.Is(err, apperror.ErrAuthFailure) {
				t.Fatalf("Login() error = %v, want ErrAuthFailure", err)
			}
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Message != "Invalid email or password" {
				t.Errorf("message = %q, want %q", appErr.Message, "Invalid email or password")
			}
		})
	}
}

func TestLogin_RepositoryError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewAuthService(brokenAccounts{}, auth.NewPasswordServiceForTest(bcrypt.MinCost), newTestTokens(t), logger, 0)

	_, err := svc.Login(context.Background(), "user@example.com", "password")
	if err == nil {
		t.Fatal("Login() should propagate repository errors")
	}
	if errors.Is(err, apperror.ErrAuthFailure) {
		t.Error("a storage failure must not look like bad credentials")
	}
}

func TestLogin_DelayHonorsContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewAuthService(memory.NewAccounts(), auth.NewPasswordServiceForTest(bcrypt.MinCost), newTestTokens(t), logger, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Login(ctx, "user@example.com", "password")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Login() error = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Login() ignored the context deadline")
	}
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_SignsInNewAccount(t *testing.T) {
	svc := newTestAuthService(t)

	grant, err := svc.Register(context.Background(), "Ada", "ada@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if grant.Session.UserID == "" || grant.Session.UserID == DemoUserID {
		t.Errorf("UserID = %q, want a fresh id", grant.Session.UserID)
	}
	if grant.Session.DisplayName != "Ada" {
		t.Errorf("DisplayName = %q, want %q", grant.Session.DisplayName, "Ada")
	}

	// The new credentials work for login.
	if _, err := svc.Login(context.Background(), "ada@example.com", "s3cret"); err != nil {
		t.Errorf("Login() after Register() error = %v", err)
	}
}

func TestRegister_LongPassword(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()
	long := strings.Repeat("x", 80)

	if _, err := svc.Register(ctx, "Ann", "ann@example.com", long); err != nil {
		t.Fatalf("Register() with an 80-byte password error = %v", err)
	}
	if _, err := svc.Login(ctx, "ann@example.com", long); err != nil {
		t.Errorf("Login() with the same password error = %v", err)
	}
}

func TestRegister_DuplicateEmailShadowsOlderAccount(t *testing.T) {
	svc := newTestAuthService(t)
	ctx := context.Background()

	// No duplicate check: registering the demo email again succeeds.
	grant, err := svc.Register(ctx, "Impostor", "user@example.com", "other")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := svc.Login(ctx, "user@example.com", "other")
	if err != nil {
		t.Fatalf("Login() with the newer password error = %v", err)
	}
	if got.Session.UserID != grant.Session.UserID {
		t.Errorf("UserID = %q, want newest account %q", got.Session.UserID, grant.Session.UserID)
	}
}

func TestSeedDemoAccount_Idempotent(t *testing.T) {
	svc := newTestAuthService(t)

	if err := svc.SeedDemoAccount(context.Background()); err != nil {
		t.Fatalf("second SeedDemoAccount() error = %v", err)
	}
}
