package pipeline

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/inventory-sidecar/internal/inventory"
	"github.com/GriffinCanCode/inventory-sidecar/internal/trigger"
)

// SpanName names the span recorded for every run.
const SpanName = "inventory-count-images"

// Span event labels, appended in this order as stages complete.
const (
	EventTCPSocket          = "TCP socket"
	EventProtocolConnection = "protocol connection"
	EventRPCConnection      = "RPC connection"
	EventRPCCall            = "RPC call"
)

var (
	errSocketConsumed  = errors.New("socket already handed to the transport")
	errTransport       = errors.New("transport failed before becoming ready")
	errIdleAfterDial   = errors.New("connection went idle during handshake")
	errConnectionEnded = errors.New("connection shut down during handshake")
)

// Config locates the inventory backend.
type Config struct {
	// Addr is the TCP address dialed.
	Addr string
	// Authority is sent as the :authority of every call.
	Authority string
}

// Result describes one finished run.
type Result struct {
	Span   *tracing.Span
	State  State
	Images []inventory.Image
	Err    error
}

// Pipeline counts the backend's images once per trigger. Runs are
// serialized: a second Run waits for the first one to return.
type Pipeline struct {
	cfg     Config
	dialer  net.Dialer
	tracer  *tracing.Tracer
	metrics *monitoring.Metrics
	logger  *logging.Logger

	mu sync.Mutex
}

// New creates a pipeline. It does not touch the network.
func New(cfg Config, tracer *tracing.Tracer, metrics *monitoring.Metrics, logger *logging.Logger) *Pipeline {
	if cfg.Authority == "" {
		cfg.Authority = cfg.Addr
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:     cfg,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Handle runs the pipeline for ev, discarding the result. It has the shape
// trigger.Stream.ForEach expects.
func (p *Pipeline) Handle(ctx context.Context, ev trigger.Event) {
	p.Run(ctx, ev)
}

// Run performs one connect, handshake, call sequence. Failures are recorded
// on the span and in the result, never returned.
func (p *Pipeline) Run(ctx context.Context, _ trigger.Event) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.IncTriggers()
	timer := monitoring.NewTimer(p.metrics)

	span, ctx := p.tracer.StartSpan(ctx, SpanName)
	span.SetTag("backend.addr", p.cfg.Addr)

	images, err := p.execute(ctx, span)

	res := Result{Span: span, Images: images, Err: err, State: Completed}
	outcome := monitoring.OutcomeCompleted
	if err != nil {
		res.State = Failed
		outcome = monitoring.OutcomeFailed
		span.SetError(err)
	}

	duration := timer.Stop(outcome)
	p.tracer.Submit(span)

	if err != nil {
		return res
	}
	p.logger.Info("inventory counted",
		zap.Int("images", len(images)),
		zap.String("span_id", span.SpanID.String()),
		zap.Duration("duration", duration),
	)
	return res
}

func (p *Pipeline) execute(ctx context.Context, span *tracing.Span) ([]inventory.Image, error) {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.cfg.Addr)
	if err != nil {
		return nil, p.fail(Connecting, span, err)
	}
	defer conn.Close()
	span.Event(EventTCPSocket)

	cc, err := p.handshake(ctx, conn)
	if err != nil {
		return nil, p.fail(Handshaking, span, err)
	}
	defer cc.Close()
	span.Event(EventProtocolConnection)

	client := inventory.NewClient(cc)
	span.Event(EventRPCConnection)

	images, err := client.ListImages(ctx, false)
	if err != nil {
		return nil, p.fail(Calling, span, err)
	}
	p.metrics.SetInventorySize(len(images))
	span.Event(EventRPCCall)

	return images, nil
}

func (p *Pipeline) fail(stage State, span *tracing.Span, err error) error {
	p.metrics.RecordStageFailure(stage.stageLabel())
	p.logger.Warn("pipeline stage failed",
		zap.String("stage", stage.stageLabel()),
		zap.String("span_id", span.SpanID.String()),
		zap.Error(err),
	)
	return stageFailure(stage, err)
}

// handshake runs HTTP/2 and gRPC setup over conn and waits until the
// connection is ready for calls.
func (p *Pipeline) handshake(ctx context.Context, conn net.Conn) (*grpc.ClientConn, error) {
	var handed atomic.Bool
	dial := func(context.Context, string) (net.Conn, error) {
		if handed.CompareAndSwap(false, true) {
			return conn, nil
		}
		return nil, errSocketConsumed
	}

	cc, err := grpc.NewClient("passthrough:///"+p.cfg.Authority,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(dial),
		grpc.WithAuthority(p.cfg.Authority),
		grpc.WithUnaryInterceptor(tracing.GRPCClientInterceptor()),
	)
	if err != nil {
		return nil, err
	}

	cc.Connect()
	if err := waitReady(ctx, cc); err != nil {
		cc.Close()
		return nil, err
	}
	return cc, nil
}

func waitReady(ctx context.Context, cc *grpc.ClientConn) error {
	dialed := false
	for {
		state := cc.GetState()
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure:
			return errTransport
		case connectivity.Shutdown:
			return errConnectionEnded
		case connectivity.Connecting:
			dialed = true
		case connectivity.Idle:
			if dialed {
				return errIdleAfterDial
			}
			cc.Connect()
		}

		if !cc.WaitForStateChange(ctx, state) {
			return ctx.Err()
		}
	}
}
