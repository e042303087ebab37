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

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/config"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/monitoring"
)

// ErrServe wraps failures of the accept loop.
var ErrServe = errors.New("metrics server failed")

const readHeaderTimeout = 10 * time.Second

// MetricsServer exposes the Prometheus registry over HTTP. Only GET on the
// configured path is routed, every other request is answered with 404.
type MetricsServer struct {
	listener net.Listener
	http     *http.Server
	router   *gin.Engine
	logger   *logging.Logger
}

// NewMetricsServer binds cfg.Addr immediately so a taken port fails startup.
func NewMetricsServer(cfg config.MetricsConfig, metrics *monitoring.Metrics, logger *logging.Logger) (*MetricsServer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	router := NewRouter(cfg.Path, metrics, logger)
	return &MetricsServer{
		listener: lis,
		router:   router,
		logger:   logger,
		http: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// NewRouter builds the scrape router.
func NewRouter(path string, metrics *monitoring.Metrics, logger *logging.Logger) *gin.Engine {
	if logger == nil {
		logger = logging.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.HandleMethodNotAllowed = false
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(monitoring.Middleware(metrics))

	router.GET(path, gin.WrapH(metrics.Handler()))
	router.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return router
}

// Addr returns the bound address.
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Handler returns the router, for tests.
func (s *MetricsServer) Handler() http.Handler {
	return s.router
}

// Serve runs the accept loop until Close or Shutdown.
func (s *MetricsServer) Serve() error {
	s.logger.Info("Serving metrics", zap.String("addr", s.Addr()))
	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%w: %v", ErrServe, err)
	}
	return nil
}

// Shutdown stops accepting and waits for in-flight scrapes until ctx ends.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Close stops the server without waiting.
func (s *MetricsServer) Close() error {
	err := s.http.Close()
	// http.Server only tracks the listener once Serve has run.
	if cerr := s.listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) && err == nil {
		err = cerr
	}
	return err
}

func requestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("metrics request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
