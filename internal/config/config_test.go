package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValidWithoutHostName(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate(false))
}

func TestValidateRequiresHostNameWhenAsked(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HOST_NAME")
}

func TestValidateReportsAllMissingSettings(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VPT_POSTGRES_DSN")
	assert.Contains(t, err.Error(), "SERVER_URL/SERVER_PORT")
	assert.Contains(t, err.Error(), "HOST_NAME")
}

func TestLoadFromEnvOverridesPostgresDSN(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("VPT_POSTGRES_DSN", "postgres://override")
	LoadFromEnv(cfg)
	assert.Equal(t, "postgres://override", cfg.Postgres.DSN)
}

func TestLoadFromEnvRedisAddrImpliesEnabled(t *testing.T) {
	cfg := DefaultConfig()
	require.False(t, cfg.Redis.Enabled)
	t.Setenv("VPT_REDIS_ADDR", "redis:6379")
	LoadFromEnv(cfg)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadFromEnvTracingEndpointImpliesEnabled(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("VPT_TRACING_ENDPOINT", "otel:4318")
	LoadFromEnv(cfg)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "otel:4318", cfg.Observability.Tracing.Endpoint)
}

func TestLoadFromEnvServerPortBuildsAddr(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("SERVER_PORT", "9090")
	LoadFromEnv(cfg)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
}

func TestLoadFromEnvInvalidDurationLeavesDefault(t *testing.T) {
	cfg := DefaultConfig()
	original := cfg.Cache.MaxAge
	t.Setenv("VPT_CACHE_MAX_AGE", "not-a-duration")
	LoadFromEnv(cfg)
	assert.Equal(t, original, cfg.Cache.MaxAge)
}

func TestLoadFromEnvValidDuration(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("VPT_CACHE_MAX_AGE", "1h30m")
	LoadFromEnv(cfg)
	assert.Equal(t, 90*time.Minute, cfg.Cache.MaxAge)
}

func TestParseHostAddrsParsesPairsAndSkipsMalformed(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("VPT_HOST_ADDRS", "host1=10.0.0.1:9001,host2=10.0.0.2:9001, ,malformed")
	LoadFromEnv(cfg)
	assert.Equal(t, map[string]string{
		"host1": "10.0.0.1:9001",
		"host2": "10.0.0.2:9001",
	}, cfg.Server.HostAddrs)
}

func TestParseBoolAcceptsCommonTruthyForms(t *testing.T) {
	cfg := DefaultConfig()
	t.Setenv("VPT_REDIS_ENABLED", "YES")
	LoadFromEnv(cfg)
	assert.True(t, cfg.Redis.Enabled)
}
