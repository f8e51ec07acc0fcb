package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/planner"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/pkg/config"
)

// Server represents the HTTP server
type Server struct {
	engine      *gin.Engine
	httpServer  *http.Server
	config      *config.Config
	rateLimiter *RateLimiter
	planner     *planner.Hub
	log         *slog.Logger

	// Dependencies for handlers
	dependencies *types.Dependencies
}

// NewServer creates a new HTTP server for cfg. Handlers are registered by
// Initialize.
func NewServer(cfg *config.Config, deps *types.Dependencies) *Server {
	if deps == nil {
		deps = &types.Dependencies{}
	}
	if deps.Config == nil {
		deps.Config = cfg
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))

	maxHeader := cfg.Server.MaxHeaderBytes
	if maxHeader <= 0 {
		maxHeader = 1 << 20
	}

	return &Server{
		engine:       engine,
		config:       cfg,
		rateLimiter:  NewRateLimiter(),
		log:          deps.Log().With("component", "http"),
		dependencies: deps,
		httpServer: &http.Server{
			Addr:           addr,
			Handler:        engine,
			ReadTimeout:    durationOr(cfg.Server.ReadTimeout, 30*time.Second),
			WriteTimeout:   durationOr(cfg.Server.WriteTimeout, 30*time.Second),
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: maxHeader,
		},
	}
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Engine returns the Gin engine for testing
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Initialize sets up middleware and routes
func (s *Server) Initialize() error {
	if err := types.RegisterValidators(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	s.setupMiddleware()

	s.planner = planner.NewHub(s.dependencies)
	return RegisterRoutes(s.engine, s.dependencies, s.rateLimiter, s.planner)
}

// setupMiddleware configures global middleware
func (s *Server) setupMiddleware() {
	s.engine.Use(Recovery(s.log))
	s.engine.Use(RequestLogger(s.log))

	if s.config.Security.EnableCORS {
		s.engine.Use(CORS(s.config.Security))
	}

	if s.config.Security.MaxRequestSize > 0 {
		s.engine.Use(RequestSizeLimitWithSize(s.config.Security.MaxRequestSize))
	} else {
		s.engine.Use(RequestSizeLimit())
	}
}

// Start starts the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server. Planner sessions are closed
// first since hijacked connections are not tracked by http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.planner != nil {
		if err := s.planner.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing planner sessions: %w", err))
		}
	}

	s.rateLimiter.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
