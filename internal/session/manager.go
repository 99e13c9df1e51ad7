// Package session owns the signed-in identity and its token.
//
// STATE MACHINE:
//
//	Unauthenticated ──Login/Register──▶ Authenticating ──ok──▶ Authenticated
//	       ▲                                   │                     │
//	       └──────────── failure: back to the state before the attempt
//	       └──────────────────────────── Logout / expired token ─────┘
//
// The token is decoded locally. Anything wrong with it (missing, malformed,
// tampered, expired) means "signed out": it is logged, the stored token is
// cleared, and no error reaches the caller.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/country-explorer/internal/apperror"
	"github.com/sakif/country-explorer/internal/metrics"
	"github.com/sakif/country-explorer/internal/model"
)

// Messages shown when an exchange fails for a reason other than bad
// credentials (timeouts, storage errors).
const (
	MsgLoginError    = "An error occurred during login. Please try again."
	MsgRegisterError = "An error occurred during registration. Please try again."
)

// DefaultAuthTimeout bounds a login or register exchange.
const DefaultAuthTimeout = 10 * time.Second

// State is the session lifecycle state.
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// TokenStore persists the raw token. Load returns "" when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// TokenDecoder turns a token into the session it carries without checking
// expiry.
type TokenDecoder interface {
	Decode(token string) (*model.Session, error)
}

// Authenticator is the credential exchange. Login returns an error matching
// apperror.ErrAuthFailure for bad credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.AuthGrant, error)
	Register(ctx context.Context, name, email, password string) (*model.AuthGrant, error)
}

// Scope is whatever is namespaced by the signed-in user (the favorites store).
type Scope interface {
	Activate(ctx context.Context, userID string) error
	Deactivate()
}

// Manager is the session state machine. Safe for concurrent use.
type Manager struct {
	tokens  TokenStore
	decoder TokenDecoder
	auth    Authenticator
	scope   Scope
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	timeout time.Duration

	mu      sync.Mutex
	state   State
	current *model.Session
	epoch   uint64 // bumped whenever the signed-in identity changes
}

// Option configures a Manager.
type Option func(*Manager)

// WithScope attaches the store that follows the signed-in user.
func WithScope(s Scope) Option { return func(m *Manager) { m.scope = s } }

// WithMetrics attaches Prometheus instruments.
func WithMetrics(mt *metrics.Metrics) Option { return func(m *Manager) { m.metrics = mt } }

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithAuthTimeout bounds Login and Register.
func WithAuthTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewManager returns a Manager in the Unauthenticated state. Call
// Initialize to pick up a persisted token.
func NewManager(tokens TokenStore, decoder TokenDecoder, auth Authenticator, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		tokens:  tokens,
		decoder: decoder,
		auth:    auth,
		logger:  logger,
		now:     time.Now,
		timeout: DefaultAuthTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Initialize restores the session from the persisted token. The session is
// restored only when the token decodes and its expiry is strictly after now;
// otherwise the token is cleared and the manager stays signed out.
//
// The only error returned is a failure to load the signed-in user's scope.
func (m *Manager) Initialize(ctx context.Context) error {
	token, err := m.tokens.Load(ctx)
	if err != nil {
		m.logger.Warn("reading session token failed", slog.String("error", err.Error()))
		m.signOut(ctx, "")
		return nil
	}
	if token == "" {
		m.signOut(ctx, "")
		return nil
	}

	sess, err := m.decoder.Decode(token)
	if err != nil {
		invalid := apperror.TokenInvalid(err)
		m.logger.Info(invalid.Message, slog.String("error", err.Error()))
		m.signOut(ctx, "invalid")
		return nil
	}
	if !sess.ValidAt(m.now()) {
		m.logger.Info("discarding expired session token",
			slog.String("userID", sess.UserID),
			slog.Time("expiredAt", sess.ExpiresAt()),
		)
		m.signOut(ctx, "expired")
		return nil
	}

	m.mu.Lock()
	m.switchIdentityLocked(sess)
	m.mu.Unlock()

	return m.activate(ctx, sess.UserID)
}

// Login exchanges credentials for a session. On failure the previous
// session, if any, is left exactly as it was.
func (m *Manager) Login(ctx context.Context, email, password string) (*model.Session, error) {
	return m.authenticate(ctx, "login", MsgLoginError, func(ctx context.Context) (*model.AuthGrant, error) {
		return m.auth.Login(ctx, email, password)
	})
}

// Register creates an account and signs it in.
func (m *Manager) Register(ctx context.Context, name, email, password string) (*model.Session, error) {
	return m.authenticate(ctx, "register", MsgRegisterError, func(ctx context.Context) (*model.AuthGrant, error) {
		return m.auth.Register(ctx, name, email, password)
	})
}

func (m *Manager) authenticate(
	ctx context.Context,
	event, genericMsg string,
	exchange func(context.Context) (*model.AuthGrant, error),
) (*model.Session, error) {
	m.mu.Lock()
	if m.state == Authenticating {
		m.mu.Unlock()
		return nil, &apperror.AppError{Err: apperror.ErrConflict, Message: "A sign-in is already in progress."}
	}
	prevState, prevSession, epoch := m.state, m.current, m.epoch
	m.state = Authenticating
	m.mu.Unlock()

	// A Logout that ran during the exchange wins over the saved state.
	restore := func() {
		m.mu.Lock()
		if m.epoch == epoch {
			m.state, m.current = prevState, prevSession
		}
		m.mu.Unlock()
		m.metrics.SessionTransition("failed")
	}

	exCtx, cancel := context.WithTimeout(ctx, m.timeout)
	grant, err := exchange(exCtx)
	cancel()
	if err != nil {
		restore()
		if errors.Is(err, apperror.ErrAuthFailure) {
			return nil, err
		}
		m.logger.Error(event+" failed", slog.String("error", err.Error()))
		return nil, apperror.AuthFailedWith(genericMsg, err)
	}

	if err := m.tokens.Save(ctx, grant.Token); err != nil {
		restore()
		m.logger.Error("saving session token failed", slog.String("error", err.Error()))
		return nil, apperror.AuthFailedWith(genericMsg, err)
	}

	sess := grant.Session
	m.mu.Lock()
	switched := m.switchIdentityLocked(&sess)
	m.mu.Unlock()
	m.metrics.SessionTransition(event)
	m.logger.Info("signed in", slog.String("event", event), slog.String("userID", sess.UserID))

	if switched {
		if err := m.activate(ctx, sess.UserID); err != nil {
			return &sess, err
		}
	}
	return &sess, nil
}

// switchIdentityLocked makes sess the active session. When the user
// changes, the scope is dropped before sess becomes visible so the old
// user's favorites never show under the new identity. Reports whether the
// scope needs activating for sess.
func (m *Manager) switchIdentityLocked(sess *model.Session) bool {
	switched := m.current == nil || m.current.UserID != sess.UserID
	if switched && m.scope != nil {
		m.scope.Deactivate()
	}
	m.epoch++
	m.state = Authenticated
	m.current = sess
	return switched
}

// Logout clears the token, drops the favorites scope and signs out. The
// state change happens even when clearing the token fails; that error is
// returned for logging.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	wasSignedIn := m.current != nil
	m.clearLocked()
	m.mu.Unlock()

	if wasSignedIn {
		m.metrics.SessionTransition("logout")
	}

	if err := m.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("session: clearing token: %w", err)
	}
	return nil
}

// Current returns a copy of the active session, or nil.
func (m *Manager) Current() *model.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	s := *m.current
	return &s
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RequireSession returns the active session or an apperror.ErrUnauthorized.
// A session whose token expired since it was restored counts as none.
func (m *Manager) RequireSession() (*model.Session, error) {
	s := m.Current()
	if s == nil || !s.ValidAt(m.now()) {
		return nil, apperror.Unauthorized("Please log in to manage favorites.")
	}
	return s, nil
}

// signOut resets to Unauthenticated and clears any stored token.
// reason is recorded as a metric event when non-empty.
func (m *Manager) signOut(ctx context.Context, reason string) {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()

	if reason != "" {
		m.metrics.SessionTransition(reason)
		if err := m.tokens.Clear(ctx); err != nil {
			m.logger.Warn("clearing session token failed", slog.String("error", err.Error()))
		}
	}
}

func (m *Manager) clearLocked() {
	if m.scope != nil {
		m.scope.Deactivate()
	}
	m.epoch++
	m.state = Unauthenticated
	m.current = nil
}

func (m *Manager) activate(ctx context.Context, userID string) error {
	if m.scope == nil {
		return nil
	}
	if err := m.scope.Activate(ctx, userID); err != nil {
		m.logger.Error("loading favorites failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("session: activating favorites for %s: %w", userID, err)
	}
	return nil
}
