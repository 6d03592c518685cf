package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/tutors")
	t.Setenv("ENV", "")
	t.Setenv("MIGRATIONS_PATH", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("MATCH_CACHE_TTL", "")
	t.Setenv("METRICS_ADDR", "")
	t.Setenv("COMPLETION_SWEEP_INTERVAL", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "migrations", cfg.MigrationsPath)
	assert.Equal(t, 5*time.Minute, cfg.MatchCacheTTL)
	assert.Equal(t, time.Hour, cfg.CompletionSweepInterval)
	assert.False(t, cfg.CacheEnabled())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/tutors")
	t.Setenv("ENV", "production")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MATCH_CACHE_TTL", "30s")
	t.Setenv("COMPLETION_SWEEP_INTERVAL", "10m")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.MatchCacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.CompletionSweepInterval)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "missing dsn", key: "DB_DSN", val: ""},
		{name: "bad redis db", key: "REDIS_DB", val: "two"},
		{name: "bad ttl", key: "MATCH_CACHE_TTL", val: "soon"},
		{name: "negative sweep", key: "COMPLETION_SWEEP_INTERVAL", val: "-1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_DSN", "postgres://localhost/tutors")
			t.Setenv("REDIS_DB", "")
			t.Setenv("MATCH_CACHE_TTL", "")
			t.Setenv("COMPLETION_SWEEP_INTERVAL", "")
			t.Setenv(tt.key, tt.val)

			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
