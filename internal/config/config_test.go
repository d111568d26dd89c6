package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.Reconnect.InitialDelay)
	assert.Equal(t, []string{"websocket", "polling"}, cfg.Transports)
	assert.NoError(t, cfg.Validate())
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"MARKET_BASE_URL", "MARKET_SESSION_FILE", "MARKET_BRIDGE_ADDR", "LOG_LEVEL",
		"AMQP_URL", "AMQP_EXCHANGE", "OTEL_EXPORTER_OTLP_ENDPOINT", "APP_ENV",
		"MARKET_TRANSPORTS", "MARKET_DEBUG_ROUTES", "MARKET_ACK_TIMEOUT", "MARKET_RECONNECT_MAX_ATTEMPTS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(Defaults(), cfg))
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeTempYAML(t, `
baseURL: http://market.example:8080
transports: [polling]
retryDelay: 50ms
reconnect:
  initialDelay: 1s
  maxAttempts: 4
`)
	clearEnv(t)
	t.Setenv("MARKET_BRIDGE_ADDR", "127.0.0.1:9999")
	t.Setenv("MARKET_RECONNECT_MAX_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://market.example:8080", cfg.BaseURL)
	assert.Equal(t, []string{"polling"}, cfg.Transports)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, time.Second, cfg.Reconnect.InitialDelay)
	assert.Equal(t, 7, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, "127.0.0.1:9999", cfg.BridgeAddr)
	assert.Equal(t, 3, cfg.RetryAttempts, "unset keys keep defaults")
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeTempYAML(t, "baseURL: [oops"))
	assert.ErrorContains(t, err, "parse config")

	_, err = Load(writeTempYAML(t, "transports: [carrier-pigeon]"))
	assert.ErrorContains(t, err, "unknown transport")
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.RetryAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = Defaults()
	cfg.Transports = nil
	assert.Error(t, cfg.Validate())
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"websocket", "polling"}, splitCSV(" websocket, ,polling "))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warn")
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MARKET_BASE_URL=http://campus.example:8080\nLOG_LEVEL=debug\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://campus.example:8080", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadDotEnv(""))
}
