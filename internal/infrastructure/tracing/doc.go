/*
Package tracing records one span per pipeline run and exports finished spans
from a background worker.

# Ownership

A Span is a plain value handed down the run through its context
(ContextWithSpan / SpanFromContext), never through a package global. The run
appends events as stages complete, calls Finish, and submits it. From then on
the span is read-only and belongs to the export worker.

# Export

	reporter, _ := tracing.NewOTLPReporter("127.0.0.1:4317", "exp-rkt-grpc")
	tracer := tracing.New("exp-rkt-grpc", reporter, logger,
		tracing.WithQueueSize(1000),
		tracing.WithMetrics(metrics),
	)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "inventory-count-images")
	// ... stages, each followed by span.Event("...") ...
	tracer.Submit(span)

Submit never blocks the caller. The queue is drained by a single goroutine
that calls Reporter.Report once per span; report errors are logged and
counted, never returned. Close closes the queue without draining it.

# Propagation

GRPCClientInterceptor copies the active span's trace and span IDs into the
outgoing x-trace-id / x-span-id metadata of backend calls.
*/
package tracing
