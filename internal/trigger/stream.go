package trigger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/inventory-sidecar/internal/infrastructure/logging"
)

// ErrNoSignals is returned by Notify when no signal was named.
var ErrNoSignals = errors.New("trigger: no signals to watch")

// Event is one operator trigger. It carries no payload.
type Event struct{}

// Stream delivers trigger events from an OS signal subscription or any other
// signal source.
type Stream struct {
	source <-chan os.Signal
	logger *logging.Logger
	stop   func()
	once   sync.Once
}

// Notify subscribes to sig. The subscription keeps at most one pending
// signal, further deliveries while one is pending are coalesced.
func Notify(logger *logging.Logger, sig ...os.Signal) (*Stream, error) {
	if len(sig) == 0 {
		return nil, ErrNoSignals
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig...)

	s := NewStream(ch, logger)
	s.stop = func() { signal.Stop(ch) }
	return s, nil
}

// NewStream reads events from source until it is closed.
func NewStream(source <-chan os.Signal, logger *logging.Logger) *Stream {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stream{
		source: source,
		logger: logger,
		stop:   func() {},
	}
}

// Stop ends the OS subscription. Safe to call more than once.
func (s *Stream) Stop() {
	s.once.Do(s.stop)
}

// ForEach calls fn for every event, one at a time: the next event is not
// read until fn has returned. It returns when ctx is cancelled or the source
// is closed. A panic in fn is logged and the loop continues.
func (s *Stream) ForEach(ctx context.Context, fn func(context.Context, Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-s.source:
			if !ok {
				return
			}
			s.logger.Debug("trigger received", zap.Stringer("signal", sig))
			s.dispatch(ctx, fn)
		}
	}
}

func (s *Stream) dispatch(ctx context.Context, fn func(context.Context, Event)) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("trigger handler panicked",
				zap.Error(fmt.Errorf("panic: %v", r)),
				zap.Stack("stack"),
			)
		}
	}()
	fn(ctx, Event{})
}
