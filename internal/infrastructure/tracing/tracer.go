package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/inventory-sidecar/internal/shared/id"
)

const (
	defaultQueueSize     = 1000
	defaultReportTimeout = 5 * time.Second
)

// Export results used as metric label values
const (
	exportOK      = "ok"
	exportError   = "error"
	exportDropped = "dropped"
)

// Tracer opens spans and exports finished ones from a background worker.
type Tracer struct {
	service       string
	logger        *logging.Logger
	reporter      Reporter
	metrics       *monitoring.Metrics
	ids           *id.Generator
	reportTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	spans  chan *Span
	done   chan struct{}
}

// Option configures a Tracer
type Option func(*Tracer)

// WithQueueSize bounds the delivery queue
func WithQueueSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.spans = make(chan *Span, n)
		}
	}
}

// WithMetrics counts export results
func WithMetrics(m *monitoring.Metrics) Option {
	return func(t *Tracer) { t.metrics = m }
}

// WithReportTimeout bounds each Report call
func WithReportTimeout(d time.Duration) Option {
	return func(t *Tracer) {
		if d > 0 {
			t.reportTimeout = d
		}
	}
}

// WithIDGenerator overrides the ID source
func WithIDGenerator(g *id.Generator) Option {
	return func(t *Tracer) { t.ids = g }
}

// New creates a tracer and starts its export worker. A nil reporter
// discards spans.
func New(service string, reporter Reporter, logger *logging.Logger, opts ...Option) *Tracer {
	if reporter == nil {
		reporter = NopReporter{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	t := &Tracer{
		service:       service,
		logger:        logger,
		reporter:      reporter,
		ids:           id.Default(),
		reportTimeout: defaultReportTimeout,
		spans:         make(chan *Span, defaultQueueSize),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	go t.collectSpans()

	return t
}

// StartSpan opens a span and returns a context carrying it
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	span := &Span{
		TraceID:   t.ids.NewTraceID(),
		SpanID:    t.ids.NewSpanID(),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}
	return span, ContextWithSpan(ctx, span)
}

// Submit finishes span if needed and queues it for export. It never
// blocks: a full queue drops the span.
func (t *Tracer) Submit(span *Span) {
	if span == nil {
		return
	}
	span.Finish()

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		t.logger.Debug("tracer closed, discarding span",
			zap.Stringer("trace_id", span.TraceID),
		)
		return
	}

	select {
	case t.spans <- span:
	default:
		t.record(exportDropped)
		t.logger.Warn("span buffer full, dropping span",
			zap.Stringer("trace_id", span.TraceID),
			zap.Stringer("span_id", span.SpanID),
		)
	}
}

// Close closes the delivery queue. Spans still queued may or may not be
// reported; Close does not wait for them.
func (t *Tracer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	close(t.spans)
}

// Done is closed once the export worker has exited
func (t *Tracer) Done() <-chan struct{} {
	return t.done
}

// collectSpans forwards spans to the reporter one at a time
func (t *Tracer) collectSpans() {
	defer close(t.done)

	for span := range t.spans {
		t.export(span)
	}

	if c, ok := t.reporter.(io.Closer); ok {
		if err := c.Close(); err != nil {
			t.logger.Warn("failed to close trace reporter", zap.Error(err))
		}
	}
}

func (t *Tracer) export(span *Span) {
	ctx, cancel := context.WithTimeout(context.Background(), t.reportTimeout)
	defer cancel()

	if err := t.report(ctx, span); err != nil {
		t.record(exportError)
		t.logger.Warn("failed to report span",
			zap.Stringer("trace_id", span.TraceID),
			zap.Stringer("span_id", span.SpanID),
			zap.Error(err),
		)
		return
	}
	t.record(exportOK)
}

// report shields the worker from a panicking reporter
func (t *Tracer) report(ctx context.Context, span *Span) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: reporter panic: %v", ErrExport, r)
		}
	}()
	return t.reporter.Report(ctx, span)
}

func (t *Tracer) record(result string) {
	if t.metrics != nil {
		t.metrics.RecordExport(result)
	}
}
