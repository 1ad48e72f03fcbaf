package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager("")
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Empty(t, cfg.Server.AllowedOrigins, "cross-origin access is off by default")
	assert.Empty(t, cfg.Database.Host, "persistence is off by default")
	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, 1000, cfg.Cache.MaxItems)
	assert.Equal(t, time.Hour, cfg.Cache.MemoryTTL)
	assert.Equal(t, 60*time.Second, cfg.ExternalAPI.Scan.Timeout)
	assert.Equal(t, "sqlite", cfg.Feedback.Backend)
	assert.True(t, cfg.MCP.Enabled)
	assert.Equal(t, "/mcp", cfg.MCP.Path)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
}

func TestManager_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
environment: production
server:
  port: 9000
  allowed_origins:
    - https://clinic.example
database:
  host: db.internal
  database: figo_prod
cache:
  redis_url: redis://cache:6379/1
external_api:
  explain:
    base_url: http://explain.internal
logging:
  level: warn
`)
	t.Setenv("FIGO_SERVER_PORT", "9100")
	t.Setenv("FIGO_EXTERNAL_API_EXPLAIN_API_KEY", "secret")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, 9100, m.GetServerConfig().Port, "environment wins over file")
	assert.Equal(t, []string{"https://clinic.example"}, m.GetServerConfig().AllowedOrigins)
	assert.Equal(t, "db.internal", m.GetDatabaseConfig().Host)
	assert.Equal(t, "http://explain.internal", m.GetExternalAPIConfig().Explain.BaseURL)
	assert.Equal(t, "secret", m.GetExternalAPIConfig().Explain.APIKey)
	assert.Equal(t, "redis://cache:6379/1", m.GetRedisConnectionString())
	assert.Contains(t, m.GetDatabaseConnectionString(), "dbname=figo_prod")
	assert.True(t, m.IsProduction())
}

func TestManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestManager_Validate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad port", "server:\n  port: 70000\n", "invalid server port"},
		{"tls without files", "server:\n  tls_enabled: true\n", "TLS requires"},
		{"postgres feedback without db", "feedback:\n  backend: postgres\n", "requires database.host"},
		{"unknown backend", "feedback:\n  backend: mongo\n", "invalid feedback backend"},
		{"relative mcp path", "mcp:\n  path: mcp\n", "invalid MCP path"},
		{"bad log level", "logging:\n  level: loud\n", "invalid log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.ErrorContains(t, m.Validate(), tt.want)
		})
	}
}

func TestManager_Reload(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, m.GetServerConfig().Port)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0o600))
	require.NoError(t, m.Reload())
	assert.Equal(t, 9001, m.GetServerConfig().Port)
}
