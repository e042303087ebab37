// Package id provides identifier generation for traces and spans.
//
// Trace IDs are ULIDs drawn from a monotonic entropy source, so IDs produced
// by one Generator sort in creation order even within the same millisecond.
// Span IDs are the low 8 bytes of such a ULID, matching the OTLP span ID
// width.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// TraceID identifies one pipeline run end to end (16 bytes).
type TraceID ulid.ULID

// SpanID identifies a single span within a trace (8 bytes).
type SpanID [8]byte

// Generator generates monotonic ULIDs
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// ordering inside a millisecond.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(rand.Reader)
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Useful for testing with deterministic entropy.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
	}
}

// Generate creates a new ULID, strictly greater than the previous one
// generated in the same millisecond.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// NewTraceID returns a fresh trace ID.
func (g *Generator) NewTraceID() TraceID {
	return TraceID(g.Generate())
}

// NewSpanID returns a fresh span ID.
func (g *Generator) NewSpanID() SpanID {
	u := g.Generate()
	var s SpanID
	copy(s[:], u[8:])
	return s
}

// NewTraceID generates a trace ID from the default generator
func NewTraceID() TraceID {
	return Default().NewTraceID()
}

// NewSpanID generates a span ID from the default generator
func NewSpanID() SpanID {
	return Default().NewSpanID()
}

func (t TraceID) String() string { return ulid.ULID(t).String() }

// Bytes returns the 16 raw bytes, as OTLP expects them.
func (t TraceID) Bytes() []byte {
	b := make([]byte, len(t))
	copy(b, t[:])
	return b
}

// Compare orders trace IDs by creation.
func (t TraceID) Compare(other TraceID) int {
	return ulid.ULID(t).Compare(ulid.ULID(other))
}

// Time extracts the millisecond timestamp encoded in the trace ID.
func (t TraceID) Time() time.Time {
	return ulid.Time(ulid.ULID(t).Time())
}

func (s SpanID) String() string { return hex.EncodeToString(s[:]) }

// Bytes returns the 8 raw bytes.
func (s SpanID) Bytes() []byte {
	b := make([]byte, len(s))
	copy(b, s[:])
	return b
}

// IsZero reports whether the span ID was never assigned.
func (s SpanID) IsZero() bool { return s == SpanID{} }

// ParseTraceID parses the canonical ULID text form of a trace ID.
func ParseTraceID(s string) (TraceID, error) {
	u, err := ulid.Parse(s)
	if err != nil {
		return TraceID{}, err
	}
	return TraceID(u), nil
}
