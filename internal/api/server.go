package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/figo-endometrial-mcp-server/internal/domain"
	"github.com/figo-endometrial-mcp-server/internal/feedback"
	"github.com/figo-endometrial-mcp-server/internal/middleware"
	"github.com/figo-endometrial-mcp-server/internal/service"
	"github.com/figo-endometrial-mcp-server/pkg/external"
)

const serviceVersion = "1.0.0"

// Dependencies are the collaborators the HTTP API serves. Feedback, Scan,
// Explain and MCP are optional.
type Dependencies struct {
	Assessor *service.Assessor
	Feedback feedback.Store
	Scan     *external.ScanClient
	Explain  *external.ExplainClient
	Logger   *logrus.Logger

	// MCP, when set, is mounted at MCPPath (default /mcp).
	MCP     http.Handler
	MCPPath string

	// HealthChecks run on GET /health; any error marks the service degraded.
	HealthChecks map[string]func(context.Context) error
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	upgrader      websocket.Upgrader
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Assessor == nil {
		deps.Assessor = service.NewAssessor(deps.Logger)
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.AuditLogger(deps.Logger))

	s := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        deps.Logger,
		router:        router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(cfg.Server.AllowedOrigins),
		},
	}

	s.setupRoutes()

	return s
}

// checkOrigin accepts websocket upgrades without an Origin header, from the
// serving host itself, or from a configured origin.
func checkOrigin(allowedOrigins []string) func(*http.Request) bool {
	match := middleware.OriginMatcher(allowedOrigins)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || match(origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.deps.MCP != nil {
		path := s.deps.MCPPath
		if path == "" {
			path = "/mcp"
		}
		s.router.Any(path, gin.WrapH(s.deps.MCP))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/vocabulary", s.handleVocabulary)

		v1.POST("/assess", s.handleAssess)
		v1.POST("/classify", s.handleClassify)
		v1.POST("/stage", s.handleStage)
		v1.POST("/risk", s.handleRisk)
		v1.POST("/plan", s.handlePlan)
		v1.POST("/normalize", s.handleNormalize)
		v1.GET("/assessments/:id", s.handleGetAssessment)

		v1.POST("/scan", s.handleScan)
		v1.POST("/explain", s.handleExplain)

		v1.POST("/feedback", s.handleSubmitFeedback)
		v1.GET("/feedback", s.handleListFeedback)
		v1.GET("/feedback/summary", s.handleFeedbackSummary)

		v1.GET("/ws/assess", s.handleLiveAssess)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	checks := gin.H{}
	for name, check := range s.deps.HealthChecks {
		if err := check(c.Request.Context()); err != nil {
			status = "degraded"
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	checks["scan"] = enabledLabel(s.deps.Scan.Enabled())
	checks["explain"] = enabledLabel(s.deps.Explain.Enabled())
	checks["feedback"] = enabledLabel(s.deps.Feedback != nil)

	c.JSON(http.StatusOK, gin.H{
		"status":         status,
		"timestamp":      time.Now().UTC(),
		"version":        serviceVersion,
		"engine_version": service.EngineVersion,
		"checks":         checks,
	})
}

func enabledLabel(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}

// respondError maps err onto an APIError and status code.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)
	var vErr *domain.ValidationError

	switch {
	case errors.As(err, &vErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(domain.CodeValidation, vErr.Error(), vErr.Field, requestID))
	case errors.Is(err, domain.ErrInvalidInput):
		c.AbortWithStatusJSON(http.StatusBadRequest, domain.NewAPIError(domain.CodeValidation, err.Error(), "", requestID))
	case errors.Is(err, domain.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, domain.NewAPIError(domain.CodeNotFound, err.Error(), "", requestID))
	case errors.Is(err, external.ErrServiceDisabled):
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, domain.NewAPIError(domain.CodeUnavailable, err.Error(), "", requestID))
	default:
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			domain.NewAPIError(domain.CodeInternalServer, "internal server error", "", requestID))
	}
}

// bindJSON decodes the request body, reporting malformed JSON as a
// validation failure.
func (s *Server) bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		s.respondError(c, fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidInput, err))
		return false
	}
	return true
}
