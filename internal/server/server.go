package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Deuthe/test-odrl-integration/internal/credential"
	"github.com/Deuthe/test-odrl-integration/internal/eventlog"
	"github.com/Deuthe/test-odrl-integration/internal/gateway"
	"github.com/Deuthe/test-odrl-integration/internal/health"
	"github.com/Deuthe/test-odrl-integration/internal/observability"
	"github.com/Deuthe/test-odrl-integration/internal/policy"
	"github.com/Deuthe/test-odrl-integration/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once.
var ginModeOnce sync.Once

// PolicyApplier compiles and publishes usage policies.
type PolicyApplier interface {
	Apply(ctx context.Context, doc *policy.UsagePolicy) (*policy.CompiledRule, error)
}

// TokenIssuer issues credentials.
type TokenIssuer interface {
	Issue(ctx context.Context, req *credential.TokenRequest) (string, error)
}

// Authorizer gates protected resources.
type Authorizer interface {
	Authorize(ctx context.Context, req *gateway.Request) (*gateway.Response, error)
}

// Config configures the listener and the middleware chain.
type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxBodyBytes int64
	// DataPrefix is the path protected resources are served under. It
	// must match the prefix compiled into policies. Defaults to "/data/".
	DataPrefix string
	CORS       middleware.CORSConfig
	// TokenRateLimit limits POST /auth/token per client. Nil disables it.
	TokenRateLimit *middleware.RateLimiter
}

// Dependencies are the components the handlers call.
type Dependencies struct {
	Policies PolicyApplier
	Tokens   TokenIssuer
	Gateway  Authorizer
	Events   *eventlog.Log
	Recorder eventlog.Recorder
	Health   *health.Checker
	Metrics  *observability.Metrics
	Logger   observability.Logger
}

// Server is the PAP HTTP server.
type Server struct {
	config     Config
	deps       Dependencies
	engine     *gin.Engine
	httpServer *http.Server
	logger     observability.Logger

	mu       sync.Mutex
	running  bool
	listener net.Listener
}

// New creates a server with all routes registered.
func New(cfg Config, deps Dependencies) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	if deps.Recorder == nil {
		if deps.Events != nil {
			deps.Recorder = deps.Events
		} else {
			deps.Recorder = eventlog.Discard
		}
	}
	if deps.Health == nil {
		deps.Health = health.NewChecker("")
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		engine: gin.New(),
		logger: deps.Logger.With(observability.String("component", "server")),
	}

	s.engine.Use(
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Tracing("/health", "/live", "/ready", "/metrics"),
		middleware.Logging(s.logger, "/health", "/live", "/ready", "/metrics", "/logs"),
		middleware.CORS(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)
	if deps.Metrics != nil {
		s.engine.Use(middleware.Metrics(deps.Metrics))
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	tokenChain := []gin.HandlerFunc{}
	if s.config.TokenRateLimit != nil {
		tokenChain = append(tokenChain, middleware.RateLimit(s.config.TokenRateLimit, s.deps.Metrics))
	}
	tokenChain = append(tokenChain, s.handleIssueToken)

	s.engine.POST("/policies", s.handleApplyPolicy)
	s.engine.POST("/auth/token", tokenChain...)
	s.engine.GET(dataRoute(s.config.DataPrefix), s.handleData)

	s.engine.GET("/logs", s.handleLogs)
	if s.deps.Events != nil {
		s.engine.GET("/logs/stream", gin.WrapH(eventlog.NewStreamHandler(s.deps.Events, s.logger)))
	}

	s.engine.GET("/health", s.deps.Health.HealthHandler)
	s.engine.GET("/live", s.deps.Health.HealthHandler)
	s.engine.GET("/ready", s.deps.Health.ReadinessHandler)
	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
}

// dataRoute turns a prefix such as "/data/" into "/data/:resourceName".
func dataRoute(prefix string) string {
	if prefix == "" {
		prefix = policy.DefaultPathPrefix
	}
	return strings.TrimRight(prefix, "/") + "/:resourceName"
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Listen binds the configured address. Bind failures surface here so the
// caller can exit before serving.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr(), nil
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = ln
	return ln.Addr(), nil
}

// Start serves until Stop is called. It binds first if Listen has not
// been called.
func (s *Server) Start() error {
	if _, err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}
	s.running = true
	ln := s.listener
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("read_timeout", s.config.ReadTimeout),
		observability.Duration("write_timeout", s.config.WriteTimeout),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		if s.listener != nil {
			_ = s.listener.Close()
			s.listener = nil
		}
		s.mu.Unlock()
		return nil
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("stopping HTTP server")

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.mu.Lock()
	s.running = false
	s.listener = nil
	s.mu.Unlock()

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning reports whether the server is serving.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
