// Package config provides configuration management for the servers and CLI.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/figo-endometrial-mcp-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the feedback database and exports

	// Cache settings
	CacheMaxItems int           // Maximum assessments in memory cache
	CacheTTL      time.Duration // Memory cache TTL

	// AI collaborators; empty URLs disable them
	ScanURL    string
	ExplainURL string
	AIAPIKey   string

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".figo-mcp")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      time.Hour,
		Transport:     "stdio",
		HTTPPort:      8081,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from FIGO_* environment variables.
// Falls back to defaults if not set or unparsable.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("FIGO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("FIGO_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("FIGO_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}

	cfg.ScanURL = os.Getenv("FIGO_SCAN_URL")
	cfg.ExplainURL = os.Getenv("FIGO_EXPLAIN_URL")
	cfg.AIAPIKey = os.Getenv("FIGO_AI_API_KEY")

	if v := os.Getenv("FIGO_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("FIGO_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 65535 {
			cfg.HTTPPort = n
		}
	}

	if v := os.Getenv("FIGO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FIGO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// ScanEndpoint returns the scan collaborator settings.
func (c *LiteConfig) ScanEndpoint() domain.ServiceEndpointConfig {
	return domain.ServiceEndpointConfig{BaseURL: c.ScanURL, APIKey: c.AIAPIKey}
}

// ExplainEndpoint returns the explanation collaborator settings.
func (c *LiteConfig) ExplainEndpoint() domain.ServiceEndpointConfig {
	return domain.ServiceEndpointConfig{BaseURL: c.ExplainURL, APIKey: c.AIAPIKey}
}
