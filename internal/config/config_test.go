package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formsearch/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BACKEND_URL", "API_SECRET", "GATEWAY_ADDR", "GATEWAY_URL", "GATEWAY_RATE_LIMIT", "LOG_LEVEL", "LOG_FILE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.Gateway.BackendURL)
	assert.Equal(t, DefaultAPISecret, cfg.Gateway.APISecret)
	assert.Equal(t, DefaultGatewayAddr, cfg.Gateway.Addr)
	assert.Equal(t, DefaultGatewayURL, cfg.Client.GatewayURL)
	assert.Equal(t, 5, cfg.Client.TopN)
	assert.Equal(t, 300, cfg.Client.DebounceMS)
	assert.Equal(t, domain.StrategyMemory, cfg.Client.Primary)
	assert.Equal(t, []domain.Strategy{domain.StrategyMemory, domain.StrategyPostgres}, cfg.Client.Strategies)
}

func TestLoad_PartialFileGetsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
gateway:
  backend_url: http://search.internal:9000
client:
  top_n: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://search.internal:9000", cfg.Gateway.BackendURL)
	assert.Equal(t, DefaultAPISecret, cfg.Gateway.APISecret)
	assert.Equal(t, 10, cfg.Client.TopN)
	assert.Equal(t, 300, cfg.Client.DebounceMS)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("BACKEND_URL", "http://backend:28000")
	t.Setenv("API_SECRET", "s3cret")
	t.Setenv("GATEWAY_RATE_LIMIT", "2.5")
	path := writeConfig(t, `
gateway:
  backend_url: http://ignored:1
  api_secret: ignored
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:28000", cfg.Gateway.BackendURL)
	assert.Equal(t, "s3cret", cfg.Gateway.APISecret)
	assert.InDelta(t, 2.5, cfg.Gateway.RateLimit, 1e-9)
}

func TestLoad_RejectsBadBackendURL(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
gateway:
  backend_url: "localhost:28000"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway.backend_url")
}

func TestLoad_RejectsUnlistedPrimary(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
client:
  primary_strategy: postgres
  strategies: [memory]
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestSave_RoundTripsThroughLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Client.TopN = 7

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Client.TopN)
}
