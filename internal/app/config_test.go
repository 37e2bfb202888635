package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigReportsEveryProblem(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := LoadConfig()
	require.Error(t, err)
	for _, want := range []string{"session secret", "csrf secret", "rate limit", `log level "chatty"`} {
		assert.ErrorContains(t, err, want)
	}
}

func TestLoadConfigPoolAndRedisDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 5, cfg.WorkerConcurrency)
	assert.Equal(t, "societyhub_session", cfg.SessionCookie)
}

func TestLoggerHonoursFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{AppEnv: "production", LogFormat: "json", LogLevel: "warn"}, &buf)

	logger.Info("hidden")
	logger.Warn("cache degraded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cache degraded", entry["msg"])
	assert.Equal(t, "societyhub", entry["service"])
	assert.Equal(t, "production", entry["env"])
	assert.NotContains(t, entry, "source")
}

func TestLoggerWithoutConfig(t *testing.T) {
	var buf bytes.Buffer
	newLogger(nil, &buf).Info("booting")
	assert.Contains(t, buf.String(), "msg=booting")
	assert.Contains(t, buf.String(), "service=societyhub")
}
