package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"backendmonitoring/internal/handlers"
	"backendmonitoring/internal/metrics"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	Version        string
	MetricsPath    string
	// Development enables gin debug mode and strict instrumentation
	Development bool
}

// Dependencies are the collaborators the server routes to
type Dependencies struct {
	Metrics       handlers.MetricsExporter
	RequestTiming metrics.Observer
	Workload      handlers.Workload
	Logger        zerolog.Logger
}

// Server serves the monitored routes and the metrics endpoint
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
	startTime  time.Time
	deps       Dependencies
}

// NewServer wires the routes and middleware around deps
func NewServer(config ServerConfig, deps Dependencies) (*Server, error) {
	if err := validate(&config, &deps); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if config.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	server := &Server{
		config:    config,
		router:    router,
		logger:    deps.Logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
		deps:      deps,
	}

	server.setupMiddleware()
	server.setupRoutes()

	server.httpServer = &http.Server{
		Addr:           net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port)),
		Handler:        router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return server, nil
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the API server and blocks until it stops.
// A graceful Shutdown makes Start return nil.
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("version", s.config.Version).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Stopping API server")
	return s.httpServer.Shutdown(ctx)
}

// setupMiddleware configures server middleware. Timing wraps logging and
// recovery so it sees the status written by the recovery path.
func (s *Server) setupMiddleware() {
	s.router.Use(RequestIDMiddleware())

	s.router.Use(metrics.RequestTimingMiddleware(s.deps.RequestTiming, metrics.TimingOptions{
		Strict: s.config.Development,
		Logger: s.logger,
	}))

	s.router.Use(LoggerMiddleware(s.logger))

	s.router.Use(ErrorMiddleware(s.logger))
}

// setupRoutes registers the public routes
func (s *Server) setupRoutes() {
	healthHandlers := handlers.NewHealthHandlers(s.config.Version, s.startTime)
	computationHandlers := handlers.NewComputationHandlers(s.deps.Workload, s.deps.Logger)

	s.router.GET("/", computationHandlers.Root())
	s.router.GET("/heavy-computation", computationHandlers.HeavyComputation())
	s.router.GET(s.config.MetricsPath, healthHandlers.Metrics(s.deps.Metrics))
	s.router.GET("/health", healthHandlers.HealthCheck())

	s.router.NoRoute(NotFoundHandler())
}

func validate(config *ServerConfig, deps *Dependencies) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	if deps.Metrics == nil || deps.RequestTiming == nil || deps.Workload == nil {
		return fmt.Errorf("metrics, request timing and workload dependencies are required")
	}

	if config.Version == "" {
		config.Version = "unknown"
	}

	return nil
}

func applyDefaults(config *ServerConfig) {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}

	if config.MaxHeaderBytes == 0 {
		config.MaxHeaderBytes = 1 << 20
	}

	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
}
