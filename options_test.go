package pcte

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithLoggerReceivesBoundaryEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	r := New("A", WithLogger(logger))
	if err := r.Insert(0, 'h'); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if got := buf.String(); !strings.Contains(got, "insert") {
		t.Errorf("log output = %q, want it to mention \"insert\"", got)
	}
}

func TestWithoutLoggerDiscardsSilently(t *testing.T) {
	// No WithLogger option: the default discardLogger is in use, and an
	// Insert through it must succeed without panicking.
	r := New("A")
	if err := r.Insert(0, 'h'); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if r.Text() != "h" {
		t.Errorf("Text() = %q, want %q", r.Text(), "h")
	}
}

type sequenceClock struct {
	values []uint64
	next   int
}

func (c *sequenceClock) Next() uint64 {
	v := c.values[c.next]
	c.next++
	return v
}

func TestWithClockOverridesCounterAllocation(t *testing.T) {
	clock := &sequenceClock{values: []uint64{100, 200, 300}}
	r := New("A", WithClock(clock))

	if err := r.Insert(0, 'x'); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := r.Insert(1, 'y'); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	heads := r.Frontier()
	if len(heads) != 1 || heads[0].Counter != 200 {
		t.Errorf("Frontier() = %v, want a single head with Counter 200 (second supplied clock value)", heads)
	}
}
