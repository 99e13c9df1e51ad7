package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, BackendSQLite, cfg.KVBackend)
	assert.Equal(t, "https://restcountries.com/v3.1", cfg.RestCountriesBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.AuthDelay)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.JWTSecretGenerated)
	assert.Len(t, cfg.JWTSecret, 64)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envMap(map[string]string{
		"PORT":                     "9090",
		"KV_BACKEND":               "Redis",
		"REDIS_URL":                "redis://cache:6379/1",
		"JWT_SECRET":               "0123456789abcdef0123",
		"AUTH_DELAY":               "0s",
		"DIRECTORY_RETRY_INTERVAL": "1m",
		"LOG_LEVEL":                "debug",
		"COOKIE_SECURE":            "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendRedis, cfg.KVBackend)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.False(t, cfg.JWTSecretGenerated)
	assert.Equal(t, time.Duration(0), cfg.AuthDelay)
	assert.Equal(t, time.Minute, cfg.DirectoryRetryInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.CookieSecure)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "eighty"}},
		{"port range", map[string]string{"PORT": "70000"}},
		{"bad duration", map[string]string{"AUTH_TIMEOUT": "soon"}},
		{"bad bool", map[string]string{"COOKIE_SECURE": "maybe"}},
		{"bad level", map[string]string{"LOG_LEVEL": "loud"}},
		{"unknown backend", map[string]string{"KV_BACKEND": "mongo"}},
		{"redis without url", map[string]string{"KV_BACKEND": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envMap(tt.env))
			assert.Error(t, err)
		})
	}
}
