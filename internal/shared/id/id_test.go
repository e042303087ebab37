package id

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestGenerate(t *testing.T) {
	gen := NewGenerator()

	id1 := gen.Generate()
	id2 := gen.Generate()

	if id1.String() == id2.String() {
		t.Error("Generated IDs should be unique")
	}
}

func TestTraceIDsAreMonotonic(t *testing.T) {
	gen := NewGenerator()

	prev := gen.NewTraceID()
	for i := 0; i < 1000; i++ {
		next := gen.NewTraceID()
		if next.Compare(prev) <= 0 {
			t.Fatalf("trace id %s is not greater than %s", next, prev)
		}
		prev = next
	}
}

func TestTraceIDRoundTrip(t *testing.T) {
	original := NewTraceID()

	parsed, err := ParseTraceID(original.String())
	if err != nil {
		t.Fatalf("Failed to parse trace id: %v", err)
	}
	if parsed != original {
		t.Errorf("Parsed trace id doesn't match original: %s != %s", parsed, original)
	}
	if len(original.String()) != 26 {
		t.Errorf("ULID should be 26 characters, got %d", len(original.String()))
	}
}

func TestParseTraceIDRejectsGarbage(t *testing.T) {
	invalid := []string{
		"",
		"invalid",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzz",
	}

	for _, s := range invalid {
		if _, err := ParseTraceID(s); err == nil {
			t.Errorf("ID should be invalid: %q", s)
		}
	}
}

func TestTraceIDTime(t *testing.T) {
	before := time.Now()
	tid := NewTraceID()
	after := time.Now()

	ts := tid.Time().UnixMilli()
	if ts < before.UnixMilli() || ts > after.UnixMilli() {
		t.Errorf("Timestamp should be between %d and %d ms, got %d ms", before.UnixMilli(), after.UnixMilli(), ts)
	}
}

func TestSpanID(t *testing.T) {
	gen := NewGenerator()

	s := gen.NewSpanID()
	if s.IsZero() {
		t.Fatal("span id should not be zero")
	}
	if len(s.String()) != 16 {
		t.Errorf("span id hex should be 16 characters, got %d", len(s.String()))
	}
	if !bytes.Equal(s.Bytes(), s[:]) {
		t.Error("Bytes should copy the raw id")
	}
	if !(SpanID{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
}

func TestBytesAreCopies(t *testing.T) {
	tid := NewTraceID()
	b := tid.Bytes()
	b[0] ^= 0xff

	if bytes.Equal(b, tid[:]) {
		t.Error("mutating Bytes() must not change the trace id")
	}
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()

	const goroutines = 50
	const idsPerGoroutine = 100

	var wg sync.WaitGroup
	idChan := make(chan string, goroutines*idsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < idsPerGoroutine; j++ {
				idChan <- gen.NewTraceID().String()
			}
		}()
	}

	wg.Wait()
	close(idChan)

	seen := make(map[string]bool)
	for s := range idChan {
		if seen[s] {
			t.Errorf("Duplicate ID generated: %s", s)
		}
		seen[s] = true
	}
}
