package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var liteEnvVars = []string{
	"FIGO_DATA_DIR",
	"FIGO_CACHE_MAX_ITEMS",
	"FIGO_CACHE_TTL",
	"FIGO_TRANSPORT",
	"FIGO_HTTP_PORT",
	"FIGO_LOG_LEVEL",
	"FIGO_LOG_FORMAT",
	"FIGO_SCAN_URL",
	"FIGO_EXPLAIN_URL",
	"FIGO_AI_API_KEY",
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range liteEnvVars {
		t.Setenv(v, "")
	}
}

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.ScanURL)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, "stdio", cfg.Transport)
	assert.Empty(t, cfg.ExplainEndpoint().BaseURL)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("FIGO_DATA_DIR", "/tmp/test-figo")
	t.Setenv("FIGO_CACHE_MAX_ITEMS", "500")
	t.Setenv("FIGO_CACHE_TTL", "12h")
	t.Setenv("FIGO_TRANSPORT", "http")
	t.Setenv("FIGO_HTTP_PORT", "9090")
	t.Setenv("FIGO_LOG_LEVEL", "debug")
	t.Setenv("FIGO_SCAN_URL", "http://scan.local")
	t.Setenv("FIGO_EXPLAIN_URL", "http://explain.local")
	t.Setenv("FIGO_AI_API_KEY", "test-key")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-figo", cfg.DataDir)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "http", cfg.Transport)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://scan.local", cfg.ScanEndpoint().BaseURL)
	assert.Equal(t, "test-key", cfg.ScanEndpoint().APIKey)
	assert.Equal(t, "http://explain.local", cfg.ExplainEndpoint().BaseURL)
}

func TestLoadLiteConfig_InvalidValuesKeepDefaults(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("FIGO_CACHE_MAX_ITEMS", "-3")
	t.Setenv("FIGO_CACHE_TTL", "soon")
	t.Setenv("FIGO_HTTP_PORT", "70000")

	cfg := LoadLiteConfig()

	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 8081, cfg.HTTPPort)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.figo-mcp"}

	assert.Equal(t, "/home/user/.figo-mcp/feedback.db", cfg.FeedbackDBPath())
	assert.Equal(t, "/home/user/.figo-mcp/exports", cfg.ExportDir())
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "figo")}

	require.NoError(t, cfg.EnsureDataDir())

	_, err := os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}
