package tracing

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Metadata keys carrying the active span to the backend
const (
	TraceIDHeader = "x-trace-id"
	SpanIDHeader  = "x-span-id"
)

// GRPCClientInterceptor propagates the span found in the call context to the
// server via metadata and tags it with the method and result code. Calls
// without an active span pass through untouched.
func GRPCClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		span := SpanFromContext(ctx)
		if span == nil || span.Finished() {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		span.SetTag("rpc.system", "grpc")
		span.SetTag("rpc.method", method)

		ctx = metadata.AppendToOutgoingContext(ctx,
			TraceIDHeader, span.TraceID.String(),
			SpanIDHeader, span.SpanID.String(),
		)

		err := invoker(ctx, method, req, reply, cc, opts...)
		span.SetTag("rpc.grpc.status_code", status.Code(err).String())
		return err
	}
}

// ExtractTraceContext reads propagated IDs from incoming metadata
func ExtractTraceContext(ctx context.Context) (traceID, spanID string) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ""
	}
	if vals := md.Get(TraceIDHeader); len(vals) > 0 {
		traceID = vals[0]
	}
	if vals := md.Get(SpanIDHeader); len(vals) > 0 {
		spanID = vals[0]
	}
	return traceID, spanID
}
