package pcte

import (
	"log/slog"
	"sync/atomic"
)

// Option configures a Replica at construction time, in the idiom of
// tigerwill90-fox's functional-options pattern (options.go), collapsed to a
// single configuration target since a replica has one thing to configure,
// not a router's global/per-route split.
type Option func(*Replica)

// WithLogger injects a *slog.Logger the replica uses for its boundary-level
// events (Insert/Delete/Synchronize at Info, the inner diff/replay steps at
// Debug). Without this option a replica logs nowhere.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Replica) {
		r.log = logger
	}
}

// WithClock overrides the monotonic per-replica counter a Replica uses to
// mint fresh CharIDs. The default is an internal atomic counter starting at
// zero; tests that need deterministic interleavings across replicas can
// supply their own.
func WithClock(clock Clock) Option {
	return func(r *Replica) {
		r.clock = clock
	}
}

// Clock hands out the strictly increasing counter values a replica stamps
// its own operations with (spec.md's "monotonic per-replica counter"
// assumed primitive).
type Clock interface {
	Next() uint64
}

// atomicClock is the default Clock: a simple in-process monotonic counter.
type atomicClock struct {
	n atomic.Uint64
}

func (c *atomicClock) Next() uint64 {
	return c.n.Add(1)
}

func newAtomicClock() Clock {
	return &atomicClock{}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
