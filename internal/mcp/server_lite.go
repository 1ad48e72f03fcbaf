// Package mcp exposes the staging engine as Model Context Protocol tools.
// The lite server needs no external databases: it keeps assessments in an
// in-memory cache and feedback in SQLite.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/cache"
	litecfg "github.com/figo-endometrial-mcp-server/internal/config"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/service"
	"github.com/figo-endometrial-mcp-server/pkg/external"
)

const (
	liteServerName    = "figo-endometrial-mcp-server-lite"
	liteServerVersion = "v1.0.0"
)

// LiteServer is a lightweight MCP server that requires no external databases.
type LiteServer struct {
	config        *litecfg.LiteConfig
	mcpServer     *mcp.Server
	feedbackStore feedback.Store
	cache         *cache.MemoryCache
	logger        *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithFeedbackStore sets a custom feedback store.
func WithFeedbackStore(store feedback.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.feedbackStore = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{config: cfg}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.logger == nil {
		logger, err := litecfg.NewLogger(cfg.Logging())
		if err != nil {
			return nil, err
		}
		server.logger = logger
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	server.cache = cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)

	if server.feedbackStore == nil {
		store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create feedback store: %w", err)
		}
		server.feedbackStore = store
	}

	server.mcpServer = NewToolServer(liteServerName, liteServerVersion, Tools{
		Assessor:  service.NewAssessor(server.logger, service.WithMemoryCache(server.cache)),
		Feedback:  server.feedbackStore,
		Scan:      external.NewScanClient(cfg.ScanEndpoint(), server.logger),
		Explain:   external.NewExplainClient(cfg.ExplainEndpoint(), server.logger),
		ExportDir: cfg.ExportDir(),
		Logger:    server.logger,
	})

	server.logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"data_dir":  cfg.DataDir,
	}).Info("Lite server initialized")
	return server, nil
}

// Start serves the tool set on the configured transport until ctx is
// cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	switch s.config.Transport {
	case "http":
		return s.serveHTTP(ctx)
	default:
		s.logger.Info("Serving MCP over stdio")
		if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	}
}

// Handler serves the tool set over the streamable HTTP transport.
func (s *LiteServer) Handler() http.Handler {
	return NewHTTPHandler(s.mcpServer)
}

// NewHTTPHandler wraps a tool server in the streamable HTTP transport.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

func (s *LiteServer) serveHTTP(ctx context.Context) error {
	addr := net.JoinHostPort("localhost", strconv.Itoa(s.config.HTTPPort))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Serving MCP over streamable HTTP")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("MCP HTTP transport failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
			return err
		}
	}
	return nil
}

// MCPServer returns the underlying SDK server.
func (s *LiteServer) MCPServer() *mcp.Server {
	return s.mcpServer
}

// GetFeedbackStore returns the feedback store for external access.
func (s *LiteServer) GetFeedbackStore() feedback.Store {
	return s.feedbackStore
}

// GetCache returns the memory cache for external access.
func (s *LiteServer) GetCache() *cache.MemoryCache {
	return s.cache
}
