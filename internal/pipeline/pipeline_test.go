package pipeline

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/inventory-sidecar/internal/inventory"
	"github.com/GriffinCanCode/inventory-sidecar/internal/trigger"
)

var allEvents = []string{EventTCPSocket, EventProtocolConnection, EventRPCConnection, EventRPCCall}

// dropListener closes the first n accepted connections without speaking.
type dropListener struct {
	net.Listener
	drop atomic.Int32
}

func (l *dropListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}
		if l.drop.Add(-1) >= 0 {
			conn.Close()
			continue
		}
		return conn, nil
	}
}

func startBackend(t *testing.T, lister inventory.Lister, dropFirst int32) string {
	t.Helper()

	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	lis := &dropListener{Listener: inner}
	lis.drop.Store(dropFirst)

	srv := grpc.NewServer()
	inventory.Register(srv, lister)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return inner.Addr().String()
}

func unusedAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

type harness struct {
	pipeline *Pipeline
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	exported chan *tracing.Span
}

func newHarness(t *testing.T, addr string) *harness {
	t.Helper()

	metrics, err := monitoring.NewMetrics("test")
	require.NoError(t, err)
	t.Cleanup(metrics.Close)

	exported := make(chan *tracing.Span, 16)
	reporter := tracing.ReporterFunc(func(_ context.Context, span *tracing.Span) error {
		exported <- span
		return nil
	})
	tracer := tracing.New("exp-rkt-grpc", reporter, nil, tracing.WithMetrics(metrics))
	t.Cleanup(tracer.Close)

	p := New(Config{Addr: addr, Authority: "localhost:15441"}, tracer, metrics, nil)
	return &harness{pipeline: p, metrics: metrics, tracer: tracer, exported: exported}
}

func (h *harness) run(t *testing.T) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return h.pipeline.Run(ctx, trigger.Event{})
}

func (h *harness) gauge() float64   { return testutil.ToFloat64(h.metrics.InventorySize) }
func (h *harness) counter() float64 { return testutil.ToFloat64(h.metrics.TriggersTotal) }

func images(n int) []inventory.Image {
	out := make([]inventory.Image, n)
	for i := range out {
		out[i] = inventory.Image{ID: "sha512-" + string(rune('a'+i)), Name: "example.com/img"}
	}
	return out
}

func assertEventPrefix(t *testing.T, span *tracing.Span) {
	t.Helper()
	labels := span.Labels()
	require.LessOrEqual(t, len(labels), len(allEvents))
	assert.Equal(t, allEvents[:len(labels)], labels)
}

func TestRunSequenceUpdatesGauge(t *testing.T) {
	store := inventory.NewStore()
	h := newHarness(t, startBackend(t, store, 0))

	for _, n := range []int{5, 0, 7} {
		store.Replace(images(n)...)
		res := h.run(t)
		require.NoError(t, res.Err)
		assert.Equal(t, Completed, res.State)
		assert.Len(t, res.Images, n)
		assert.Equal(t, float64(n), h.gauge())
		assert.Equal(t, allEvents, res.Span.Labels())
		assert.True(t, res.Span.Finished())
	}

	assert.Equal(t, float64(7), h.gauge())
	assert.Equal(t, float64(3), h.counter())
}

func TestHandshakeFailureThenRecovery(t *testing.T) {
	store := inventory.NewStore(images(4)...)
	h := newHarness(t, startBackend(t, store, 1))

	first := h.run(t)
	require.Error(t, first.Err)
	assert.ErrorIs(t, first.Err, ErrHandshake)
	assert.NotErrorIs(t, first.Err, ErrConnect)
	assert.Equal(t, Failed, first.State)
	assert.Equal(t, []string{EventTCPSocket}, first.Span.Labels())
	assert.Equal(t, float64(0), h.gauge())
	assert.Error(t, first.Span.Error)

	second := h.run(t)
	require.NoError(t, second.Err)
	assert.Equal(t, allEvents, second.Span.Labels())
	assert.Equal(t, float64(4), h.gauge())
	assert.Equal(t, float64(2), h.counter())
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.StageFailures.WithLabelValues("handshake")))
}

func TestConnectFailureLeavesGauge(t *testing.T) {
	store := inventory.NewStore(images(3)...)
	addr := startBackend(t, store, 0)
	h := newHarness(t, addr)

	require.NoError(t, h.run(t).Err)
	require.Equal(t, float64(3), h.gauge())

	h.pipeline.cfg.Addr = unusedAddr(t)
	res := h.run(t)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrConnect)
	assert.Empty(t, res.Span.Labels())

	var stageErr *StageError
	require.ErrorAs(t, res.Err, &stageErr)
	assert.Equal(t, Connecting, stageErr.Stage)

	assert.Equal(t, float64(3), h.gauge())
	assert.Equal(t, float64(2), h.counter())
}

func TestCallFailureLeavesGauge(t *testing.T) {
	failing := inventory.ListerFunc(func(context.Context, bool, []inventory.Filter) ([]inventory.Image, error) {
		return nil, status.Error(codes.Internal, "store corrupted")
	})
	h := newHarness(t, startBackend(t, failing, 0))
	h.metrics.SetInventorySize(9)

	res := h.run(t)
	assert.ErrorIs(t, res.Err, ErrCall)
	assert.Equal(t, []string{EventTCPSocket, EventProtocolConnection, EventRPCConnection}, res.Span.Labels())
	assert.Equal(t, float64(9), h.gauge())
}

func TestCallSendsDefaultRequest(t *testing.T) {
	var gotDetail bool
	var gotFilters []inventory.Filter
	lister := inventory.ListerFunc(func(_ context.Context, detail bool, filters []inventory.Filter) ([]inventory.Image, error) {
		gotDetail, gotFilters = detail, filters
		return images(2), nil
	})
	h := newHarness(t, startBackend(t, lister, 0))

	require.NoError(t, h.run(t).Err)
	assert.False(t, gotDetail)
	assert.Empty(t, gotFilters)
}

func TestSpansAreExported(t *testing.T) {
	h := newHarness(t, startBackend(t, inventory.NewStore(images(1)...), 0))

	res := h.run(t)
	select {
	case span := <-h.exported:
		assert.Same(t, res.Span, span)
		assert.Equal(t, SpanName, span.Name)
		assert.Equal(t, "exp-rkt-grpc", span.Service)
		assert.Equal(t, "grpc", span.Tags["rpc.system"])
		assert.Equal(t, inventory.ListImagesMethod, span.Tags["rpc.method"])
	case <-time.After(5 * time.Second):
		t.Fatal("span was not exported")
	}
}

func TestRunsAreSerialized(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	lister := inventory.ListerFunc(func(context.Context, bool, []inventory.Filter) ([]inventory.Image, error) {
		n := inFlight.Add(1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return images(1), nil
	})
	h := newHarness(t, startBackend(t, lister, 0))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.run(t)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInFlight.Load())
	assert.Equal(t, float64(4), h.counter())
}

func TestSpanEventsArePrefixes(t *testing.T) {
	store := inventory.NewStore(images(2)...)
	h := newHarness(t, startBackend(t, store, 2))

	for i := 0; i < 4; i++ {
		assertEventPrefix(t, h.run(t).Span)
	}

	h.pipeline.cfg.Addr = unusedAddr(t)
	assertEventPrefix(t, h.run(t).Span)
}

func TestStageErrorMatching(t *testing.T) {
	tests := []struct {
		stage State
		kind  error
	}{
		{Connecting, ErrConnect},
		{Handshaking, ErrHandshake},
		{Calling, ErrCall},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			err := stageFailure(tt.stage, net.ErrClosed)
			assert.ErrorIs(t, err, tt.kind)
			assert.ErrorIs(t, err, net.ErrClosed)
			assert.Contains(t, err.Error(), tt.kind.Error())
		})
	}

	assert.NotErrorIs(t, stageFailure(Idle, net.ErrClosed), ErrConnect)
}
