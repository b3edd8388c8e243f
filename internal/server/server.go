package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/alert"
	"github.com/rickgao/market-alerts/internal/model"
)

const debugTimeout = 5 * time.Second

// Runner runs fn on the alert loop and waits for it.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Health reports stream connectivity.
type Health interface {
	IsConnected() bool
}

// Pinger checks a dependency such as the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the components the server reads from. Metrics, Database and
// Markets are optional.
type Deps struct {
	Loop     Runner
	Manager  *alert.Manager
	Stream   Health
	Database Pinger
	Metrics  http.Handler
	Markets  func() []model.Market
}

// Server is the status HTTP server.
type Server struct {
	deps   Deps
	engine *gin.Engine
	logger *zap.Logger
	srv    *http.Server
	now    func() time.Time
}

// New builds the router. Call Start to listen.
func New(port int, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		deps:   deps,
		engine: gin.New(),
		logger: logger,
		now:    time.Now,
	}
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.routes()

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.engine,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       15 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/version", s.handleVersion)
	if s.deps.Metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	debug := s.engine.Group("/debug")
	debug.GET("/alerts", s.handleAlerts)
	debug.GET("/alerts/:uuid", s.handleAlert)
	debug.GET("/backlog", s.handleBacklog)
	debug.GET("/markets", s.handleMarkets)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens in the background.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.srv.Addr, err)
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server failed", zap.Error(err))
		}
	}()

	s.logger.Info("status server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := s.now()
		c.Next()
		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", s.now().Sub(start)),
		)
	}
}
