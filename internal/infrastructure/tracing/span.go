package tracing

import (
	"context"
	"time"

	"github.com/GriffinCanCode/inventory-sidecar/internal/shared/id"
)

// Event is a timestamped label recorded while a span is open
type Event struct {
	Timestamp time.Time
	Label     string
}

// Span represents a single pipeline run.
//
// A span is owned by the goroutine that started it until Finish; after that
// it is immutable and may be handed to the exporter.
type Span struct {
	TraceID   id.TraceID
	SpanID    id.SpanID
	Name      string
	Service   string
	StartTime time.Time
	EndTime   time.Time
	Events    []Event
	Tags      map[string]string
	Error     error

	finished bool
}

// Event appends a timestamped label. It is a no-op once finished.
func (s *Span) Event(label string) {
	if s == nil || s.finished {
		return
	}
	s.Events = append(s.Events, Event{Timestamp: time.Now(), Label: label})
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	if s == nil || s.finished {
		return
	}
	s.Tags[key] = value
}

// SetError records the error that ended the run
func (s *Span) SetError(err error) {
	if s == nil || s.finished {
		return
	}
	s.Error = err
}

// Finish marks the span as complete. Only the first call has an effect.
func (s *Span) Finish() {
	if s == nil || s.finished {
		return
	}
	s.EndTime = time.Now()
	s.finished = true
}

// Finished reports whether Finish has been called
func (s *Span) Finished() bool {
	return s != nil && s.finished
}

// Duration is the span's wall time, or the time so far if still open
func (s *Span) Duration() time.Duration {
	if !s.finished {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Labels returns the event labels in order
func (s *Span) Labels() []string {
	labels := make([]string, len(s.Events))
	for i, e := range s.Events {
		labels[i] = e.Label
	}
	return labels
}

type contextKey struct{}

// ContextWithSpan returns a child context carrying span as the active span
func ContextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, contextKey{}, span)
}

// SpanFromContext returns the active span, or nil
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}
