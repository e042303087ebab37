package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
)

// ErrExport marks a failure to forward a finished span
var ErrExport = errors.New("trace export failed")

// Reporter forwards one finished span to a trace backend.
// Report is only ever called from the tracer's single worker goroutine.
type Reporter interface {
	Report(ctx context.Context, span *Span) error
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(ctx context.Context, span *Span) error

// Report calls f
func (f ReporterFunc) Report(ctx context.Context, span *Span) error {
	return f(ctx, span)
}

// NopReporter discards spans
type NopReporter struct{}

// Report does nothing
func (NopReporter) Report(context.Context, *Span) error { return nil }

// LogReporter writes each span as one structured log line
type LogReporter struct {
	logger *logging.Logger
}

// NewLogReporter creates a reporter logging through logger
func NewLogReporter(logger *logging.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs the span
func (r *LogReporter) Report(_ context.Context, span *Span) error {
	if span == nil {
		return fmt.Errorf("%w: nil span", ErrExport)
	}

	fields := []zap.Field{
		zap.Stringer("trace_id", span.TraceID),
		zap.Stringer("span_id", span.SpanID),
		zap.String("operation", span.Name),
		zap.String("service", span.Service),
		zap.Time("start", span.StartTime),
		zap.Time("end", span.EndTime),
		zap.Duration("duration", span.Duration()),
		zap.Strings("events", span.Labels()),
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String("tag."+k, v))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		r.logger.Warn("span completed with error", fields...)
	} else {
		r.logger.Info("span completed", fields...)
	}
	return nil
}
