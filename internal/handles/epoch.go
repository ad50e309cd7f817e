package handles

import (
	"os"
	"sync/atomic"
)

// EpochSource reports a token identifying the current execution context.
// Cached handles are valid only while the token stays the same.
type EpochSource interface {
	Current() int64
}

// EpochFunc adapts a plain function to EpochSource.
type EpochFunc func() int64

// Current implements EpochSource.
func (f EpochFunc) Current() int64 { return f() }

// ProcessIdentity reports the OS process id.
var ProcessIdentity EpochSource = EpochFunc(func() int64 {
	return int64(os.Getpid())
})

// ManualEpoch is an EpochSource advanced explicitly by its owner.
// The zero value is ready to use.
type ManualEpoch struct {
	n atomic.Int64
}

// Current implements EpochSource.
func (m *ManualEpoch) Current() int64 { return m.n.Load() }

// Advance moves to a new token, invalidating every cache that watches m.
func (m *ManualEpoch) Advance() { m.n.Add(1) }

// Guard records the identity seen when an epoch began and detects when it changes.
// It is not safe for concurrent use; Cache calls it under its own lock.
type Guard struct {
	source   EpochSource
	recorded int64
	epoch    uint64
}

// NewGuard captures the current identity of source as epoch 1.
func NewGuard(source EpochSource) *Guard {
	if source == nil {
		source = ProcessIdentity
	}
	return &Guard{
		source:   source,
		recorded: source.Current(),
		epoch:    1,
	}
}

// Check reports whether the identity changed since the last call. On a
// change it records the new identity and starts a new epoch, so repeated
// calls without a further change return false.
func (g *Guard) Check() bool {
	current := g.source.Current()
	if current == g.recorded {
		return false
	}
	g.recorded = current
	g.epoch++
	return true
}

// Advance starts a new epoch without an identity change.
func (g *Guard) Advance() {
	g.recorded = g.source.Current()
	g.epoch++
}

// Epoch returns the epoch counter, starting at 1.
func (g *Guard) Epoch() uint64 {
	return g.epoch
}

// Identity returns the identity recorded for the current epoch.
func (g *Guard) Identity() int64 {
	return g.recorded
}
