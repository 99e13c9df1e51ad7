// Package config loads runtime settings from the environment.
//
// An optional .env file in the working directory is read first (missing is
// fine); real environment variables always win over it. Every key has a
// default so `go run ./cmd/server` works with no setup.
//
//	PORT                          8080
//	DB_PATH                       data/countries.db
//	KV_BACKEND                    sqlite | redis | memory (sqlite)
//	REDIS_URL                     redis://localhost:6379/0 (required for redis)
//	JWT_SECRET                    random per process when unset
//	RESTCOUNTRIES_BASE_URL        https://restcountries.com/v3.1
//	RESTCOUNTRIES_RATE_PER_MINUTE 600
//	DIRECTORY_RETRY_INTERVAL      30s
//	AUTH_DELAY                    500ms
//	AUTH_TIMEOUT                  10s
//	LOG_LEVEL                     info
//	COOKIE_SECURE                 false
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// KV backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds every runtime setting.
type Config struct {
	Port      int
	DBPath    string
	KVBackend string
	RedisURL  string

	JWTSecret string
	// JWTSecretGenerated is true when JWT_SECRET was unset and a random
	// secret was made up; tokens then die with the process.
	JWTSecretGenerated bool

	RestCountriesBaseURL       string
	RestCountriesRatePerMinute int
	DirectoryRetryInterval     time.Duration

	AuthDelay   time.Duration
	AuthTimeout time.Duration

	LogLevel     slog.Level
	CookieSecure bool
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Tests pass a map lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		Port:                       p.integer("PORT", 8080),
		DBPath:                     p.str("DB_PATH", "data/countries.db"),
		KVBackend:                  strings.ToLower(p.str("KV_BACKEND", BackendSQLite)),
		RedisURL:                   p.str("REDIS_URL", ""),
		JWTSecret:                  p.str("JWT_SECRET", ""),
		RestCountriesBaseURL:       p.str("RESTCOUNTRIES_BASE_URL", "https://restcountries.com/v3.1"),
		RestCountriesRatePerMinute: p.integer("RESTCOUNTRIES_RATE_PER_MINUTE", 600),
		DirectoryRetryInterval:     p.dur("DIRECTORY_RETRY_INTERVAL", 30*time.Second),
		AuthDelay:                  p.dur("AUTH_DELAY", 500*time.Millisecond),
		AuthTimeout:                p.dur("AUTH_TIMEOUT", 10*time.Second),
		LogLevel:                   p.level("LOG_LEVEL", slog.LevelInfo),
		CookieSecure:               p.boolean("COOKIE_SECURE", false),
	}
	if len(p.errs) > 0 {
		return nil, fmt.Errorf("config: %w", errors.Join(p.errs...))
	}

	switch cfg.KVBackend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("config: REDIS_URL is required when KV_BACKEND=redis")
		}
	default:
		return nil, fmt.Errorf("config: unknown KV_BACKEND %q (want sqlite, redis or memory)", cfg.KVBackend)
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT %d out of range", cfg.Port)
	}
	if cfg.DirectoryRetryInterval <= 0 {
		return nil, errors.New("config: DIRECTORY_RETRY_INTERVAL must be positive")
	}

	if cfg.JWTSecret == "" {
		secret, err := RandomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWTSecret = secret
		cfg.JWTSecretGenerated = true
	}

	return cfg, nil
}

// RandomSecret returns 32 random bytes, hex encoded.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generating secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// parser collects every malformed value instead of stopping at the first.
type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return def
	}
	return n
}

func (p *parser) dur(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return def
	}
	return b
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a log level", key, v))
		return def
	}
	return lvl
}
