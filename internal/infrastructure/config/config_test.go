package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "recipemod", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 168*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 10, cfg.Quota.DailyLimit)
	assert.Equal(t, "ollama", cfg.AI.Provider)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.False(t, cfg.UsesRedis())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
app:
  environment: staging
cache:
  backend: redis
  compression: brotli
quota:
  backend: database
  daily_limit: 3
ai:
  provider: openai
  model: gpt-4o-mini
  timeout: 20s
`)
	t.Setenv("RECIPEMOD_QUOTA_DAILY_LIMIT", "7")
	t.Setenv("RECIPEMOD_REDIS_ADDR", "cache:6380")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "brotli", cfg.Cache.Compression)
	assert.Equal(t, BackendDatabase, cfg.Quota.Backend)
	assert.Equal(t, 7, cfg.Quota.DailyLimit, "environment wins over the file")
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 20*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"negative quota", "quota:\n  daily_limit: -1\n"},
		{"openai without model", "ai:\n  provider: openai\n"},
		{"unknown provider", "ai:\n  provider: bard\n"},
		{"production without secret", "app:\n  environment: production\n"},
		{"bad port", "server:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.body)

			_, err := Load(path)

			assert.Error(t, err)
		})
	}
}

func TestDailyLimit(t *testing.T) {
	limit := NewDailyLimit(5)
	assert.Equal(t, 5, limit.DailyLimit())

	limit.Set(9)
	assert.Equal(t, 9, limit.DailyLimit())
}

func TestWatchQuota_ReloadsLimit(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "quota:\n  daily_limit: 2\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	limit := NewDailyLimit(cfg.Quota.DailyLimit)
	require.True(t, cfg.WatchQuota(limit, zaptest.NewLogger(t)))

	require.NoError(t, os.WriteFile(path, []byte("quota:\n  daily_limit: 12\n"), 0o600))

	assert.Eventually(t, func() bool { return limit.DailyLimit() == 12 }, 5*time.Second, 50*time.Millisecond)
}

func TestWatchQuota_WithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.False(t, cfg.WatchQuota(NewDailyLimit(1), zaptest.NewLogger(t)))
}
