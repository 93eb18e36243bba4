package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "http", cfg.Registry.Protocol)
	assert.Equal(t, "localhost:3000", cfg.Registry.RootDomain)
	assert.Equal(t, ".vercel.app", cfg.Registry.PreviewSuffix)
	assert.Equal(t, 10*time.Second, cfg.Registry.FetchTimeout)
	assert.Equal(t, 5*time.Second, cfg.Registry.PerFetchTimeout)

	assert.True(t, cfg.RateLimiter.Enabled)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9090, cfg.Metrics.Port)
}

func TestLoad_FromEnvironment(t *testing.T) {
	os.Setenv("REGISTRY_SERVER_PORT", "9000")
	os.Setenv("REGISTRY_REGISTRY_ROOT_DOMAIN", "example.com")
	defer func() {
		os.Unsetenv("REGISTRY_SERVER_PORT")
		os.Unsetenv("REGISTRY_REGISTRY_ROOT_DOMAIN")
	}()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "example.com", cfg.Registry.RootDomain)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	cfg = valid()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Registry.RootDomain = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Registry.Protocol = "gopher"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Registry.FetchTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.RateLimiter.BurstSize = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Metrics.Port = -1
	assert.Error(t, cfg.Validate())
}
