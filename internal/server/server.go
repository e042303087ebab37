package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/config"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/monitoring"
	metricsserver "github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/server"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/inventory-sidecar/internal/pipeline"
	"github.com/GriffinCanCode/inventory-sidecar/internal/trigger"
)

// Grace period for an in-flight run after shutdown was requested.
const runGrace = 5 * time.Second

// Server wires the trigger stream, the call pipeline, the tracer, and the
// metrics endpoint.
type Server struct {
	config        *config.Config
	logger        *logging.Logger
	metrics       *monitoring.Metrics
	tracer        *tracing.Tracer
	pipeline      *pipeline.Pipeline
	metricsServer *metricsserver.MetricsServer

	triggers    *trigger.Stream
	termination <-chan os.Signal
	stopSignals func()
}

// Option customizes a Server
type Option func(*serverOptions)

type serverOptions struct {
	triggers    <-chan os.Signal
	termination <-chan os.Signal
}

// WithTriggerSource replaces the SIGQUIT subscription
func WithTriggerSource(ch <-chan os.Signal) Option {
	return func(o *serverOptions) { o.triggers = ch }
}

// WithTerminationSource replaces the SIGINT/SIGTERM subscription
func WithTerminationSource(ch <-chan os.Signal) Option {
	return func(o *serverOptions) { o.termination = ch }
}

// New creates every component. Any failure here is a startup failure.
func New(cfg *config.Config, logger *logging.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}

	metrics, err := monitoring.NewMetrics(cfg.Metrics.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	reporter, err := newReporter(cfg.Tracing, logger)
	if err != nil {
		metrics.Close()
		return nil, err
	}

	tracer := tracing.New(cfg.Tracing.ServiceName, reporter, logger.Named("tracer"),
		tracing.WithQueueSize(cfg.Tracing.QueueSize),
		tracing.WithReportTimeout(cfg.Tracing.ExportTimeout),
		tracing.WithMetrics(metrics),
	)

	p := pipeline.New(pipeline.Config{
		Addr:      cfg.Backend.Addr,
		Authority: cfg.BackendAuthority(),
	}, tracer, metrics, logger.Named("pipeline"))

	ms, err := metricsserver.NewMetricsServer(cfg.Metrics, metrics, logger.Named("metrics"))
	if err != nil {
		tracer.Close()
		metrics.Close()
		return nil, err
	}

	s := &Server{
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		pipeline:      p,
		metricsServer: ms,
		stopSignals:   func() {},
	}

	if o.triggers != nil {
		s.triggers = trigger.NewStream(o.triggers, logger.Named("trigger"))
	} else {
		s.triggers, err = trigger.Notify(logger.Named("trigger"), syscall.SIGQUIT)
		if err != nil {
			s.teardown()
			return nil, fmt.Errorf("failed to watch trigger signal: %w", err)
		}
	}

	if o.termination != nil {
		s.termination = o.termination
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		s.termination = ch
		s.stopSignals = func() { signal.Stop(ch) }
	}

	return s, nil
}

func newReporter(cfg config.TracingConfig, logger *logging.Logger) (tracing.Reporter, error) {
	switch cfg.Exporter {
	case config.ExporterOTLP:
		r, err := tracing.NewOTLPReporter(cfg.Endpoint, cfg.ServiceName)
		if err != nil {
			return nil, fmt.Errorf("failed to create otlp reporter: %w", err)
		}
		return r, nil
	case config.ExporterNone:
		return tracing.NopReporter{}, nil
	default:
		return tracing.NewLogReporter(logger.Named("spans")), nil
	}
}

// MetricsAddr returns the bound scrape address.
func (s *Server) MetricsAddr() string {
	return s.metricsServer.Addr()
}

// Metrics returns the metric set, for tests.
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Run serves until a termination signal arrives, ctx ends, or the metrics
// endpoint fails, then tears everything down.
func (s *Server) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.metricsServer.Serve() }()

	runsDone := make(chan struct{})
	go func() {
		defer close(runsDone)
		s.triggers.ForEach(runCtx, s.pipeline.Handle)
	}()

	pid := os.Getpid()
	s.logger.Info("Sidecar ready",
		zap.Int("pid", pid),
		zap.String("backend", s.config.Backend.Addr),
		zap.String("metrics", "http://"+s.MetricsAddr()+s.config.Metrics.Path),
		zap.String("trigger", fmt.Sprintf("kill -s SIGQUIT %d", pid)),
	)

	terminated := make(chan os.Signal, 1)
	go func() { terminated <- WaitForTermination(runCtx, s.termination) }()

	var err error
	select {
	case sig := <-terminated:
		if sig != nil {
			s.logger.Info("Shutting down", zap.Stringer("signal", sig))
		} else {
			s.logger.Info("Shutting down")
		}
	case err = <-serveErr:
		s.logger.Error("Metrics server stopped", zap.Error(err))
	}

	cancel()
	select {
	case <-runsDone:
	case <-time.After(runGrace):
		s.logger.Warn("Run still in flight at shutdown")
	}
	s.teardown()
	return err
}

func (s *Server) teardown() {
	if err := s.metricsServer.Close(); err != nil {
		s.logger.Warn("Failed to close metrics server", zap.Error(err))
	}
	if s.triggers != nil {
		s.triggers.Stop()
	}
	if s.stopSignals != nil {
		s.stopSignals()
	}
	s.tracer.Close()
	s.metrics.Close()
	s.logger.Sync()
}
