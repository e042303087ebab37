package tracing

import (
	"context"
	"fmt"
	"sort"
	"time"

	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/resilience"
)

const scopeName = "github.com/GriffinCanCode/inventory-sidecar"

// OTLPReporter exports spans to an OpenTelemetry collector over gRPC.
type OTLPReporter struct {
	conn     *grpc.ClientConn
	client   collectortrace.TraceServiceClient
	resource *resourcepb.Resource
	breaker  *resilience.Breaker
}

// NewOTLPReporter creates a reporter for the collector at endpoint
// (host:port). The connection is established lazily on the first export.
func NewOTLPReporter(endpoint, service string, opts ...grpc.DialOption) (*OTLPReporter, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create otlp client for %s: %w", endpoint, err)
	}

	return &OTLPReporter{
		conn:   conn,
		client: collectortrace.NewTraceServiceClient(conn),
		resource: &resourcepb.Resource{
			Attributes: []*commonpb.KeyValue{stringAttr("service.name", service)},
		},
		breaker: resilience.New("otlp", resilience.Settings{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts resilience.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}, nil
}

// Report sends one span in its own Export request
func (r *OTLPReporter) Report(ctx context.Context, span *Span) error {
	req := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: r.resource,
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Scope: &commonpb.InstrumentationScope{Name: scopeName},
						Spans: []*tracepb.Span{ToOTLP(span)},
					},
				},
			},
		},
	}

	err := r.breaker.Execute(func() error {
		resp, err := r.client.Export(ctx, req)
		if err != nil {
			return err
		}
		if ps := resp.GetPartialSuccess(); ps != nil && ps.GetRejectedSpans() > 0 {
			return fmt.Errorf("collector rejected %d spans: %s", ps.GetRejectedSpans(), ps.GetErrorMessage())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}
	return nil
}

// Close releases the collector connection
func (r *OTLPReporter) Close() error {
	return r.conn.Close()
}

// ToOTLP converts a finished span to its OTLP form
func ToOTLP(span *Span) *tracepb.Span {
	out := &tracepb.Span{
		TraceId:           span.TraceID.Bytes(),
		SpanId:            span.SpanID.Bytes(),
		Name:              span.Name,
		Kind:              tracepb.Span_SPAN_KIND_CLIENT,
		StartTimeUnixNano: unixNano(span.StartTime),
		EndTimeUnixNano:   unixNano(span.EndTime),
		Status:            &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
	}

	for _, e := range span.Events {
		out.Events = append(out.Events, &tracepb.Span_Event{
			TimeUnixNano: unixNano(e.Timestamp),
			Name:         e.Label,
		})
	}

	keys := make([]string, 0, len(span.Tags))
	for k := range span.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		out.Attributes = append(out.Attributes, stringAttr(k, span.Tags[k]))
	}

	if span.Error != nil {
		out.Status = &tracepb.Status{
			Code:    tracepb.Status_STATUS_CODE_ERROR,
			Message: span.Error.Error(),
		}
	}
	return out
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

func unixNano(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano())
}
