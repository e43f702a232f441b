// Package pointer models the host-side movement source that sessions poll.
//
// A Hub receives movement from whatever drives the host pointer (the
// control API in pointerd-server) and fans it out to one Accumulator per
// session, so every client sees every delta regardless of poll timing.
package pointer

import (
	"math"
	"sync"
	"sync/atomic"
)

// Source yields the movement accumulated since the previous poll.
// It returns (0, 0) when nothing moved.
type Source interface {
	PollRelativeDelta() (dx, dy int)
}

// Accumulator sums deltas until polled.
type Accumulator struct {
	mu     sync.Mutex
	dx, dy int
}

// NewAccumulator creates an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add accumulates a delta.
func (a *Accumulator) Add(dx, dy int) {
	a.mu.Lock()
	a.dx += dx
	a.dy += dy
	a.mu.Unlock()
}

// PollRelativeDelta returns and resets the accumulated delta.
func (a *Accumulator) PollRelativeDelta() (int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	dx, dy := a.dx, a.dy
	a.dx, a.dy = 0, 0
	return dx, dy
}

// Hub fans movement out to subscribed accumulators.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Accumulator]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Accumulator]struct{})}
}

// Add records a movement for every current subscriber.
func (h *Hub) Add(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for a := range h.subs {
		a.Add(dx, dy)
	}
}

// Open subscribes a new Accumulator and returns it with a release func.
// Release is idempotent.
func (h *Hub) Open() (Source, func()) {
	a := NewAccumulator()
	h.mu.Lock()
	h.subs[a] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return a, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, a)
			h.mu.Unlock()
		})
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Sensitivity is a float64 multiplier that can be swapped at runtime.
// A nil *Sensitivity reads as 1.
type Sensitivity struct {
	bits atomic.Uint64
}

// NewSensitivity creates a Sensitivity holding v.
func NewSensitivity(v float64) *Sensitivity {
	s := &Sensitivity{}
	s.Store(v)
	return s
}

// Load returns the current multiplier.
func (s *Sensitivity) Load() float64 {
	if s == nil {
		return 1
	}
	return math.Float64frombits(s.bits.Load())
}

// Store replaces the multiplier.
func (s *Sensitivity) Store(v float64) {
	s.bits.Store(math.Float64bits(v))
}

// Scale multiplies a delta by factor and truncates toward zero.
func Scale(dx, dy int, factor float64) (int, int) {
	return int(float64(dx) * factor), int(float64(dy) * factor)
}
