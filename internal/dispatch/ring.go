package dispatch

import (
	"fmt"
	"sync/atomic"

	"altbot/internal/domain"
)

const cacheLine = 64

// Ring is a fixed-capacity single-producer/single-consumer queue of intents.
// TryPush is only called from the producer goroutine and TryPop only from the
// consumer goroutine. Head and tail are monotonically increasing counters;
// full is tail-head == capacity, empty is tail == head.
type Ring struct {
	_    [cacheLine]byte
	head atomic.Uint64 // next slot to read, written by the consumer
	_    [cacheLine - 8]byte
	tail atomic.Uint64 // next slot to write, written by the producer
	_    [cacheLine - 8]byte

	slots []domain.OrderIntent
	size  uint64
}

// NewRing allocates a ring holding exactly capacity intents.
func NewRing(capacity int) (*Ring, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("dispatch: capacity must be positive, got %d", capacity)
	}
	return &Ring{
		slots: make([]domain.OrderIntent, capacity),
		size:  uint64(capacity),
	}, nil
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int { return int(r.size) }

// Len returns the number of queued intents. It is exact only when called from
// the producer or consumer; other goroutines get an approximation.
func (r *Ring) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// TryPush appends in to the ring and reports false when it is full.
func (r *Ring) TryPush(in domain.OrderIntent) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == r.size {
		return false
	}
	r.slots[tail%r.size] = in
	r.tail.Store(tail + 1) // publishes the slot
	return true
}

// TryPop removes the oldest intent and reports false when the ring is empty.
func (r *Ring) TryPop() (domain.OrderIntent, bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return domain.OrderIntent{}, false
	}
	in := r.slots[head%r.size]
	r.head.Store(head + 1) // hands the slot back to the producer
	return in, true
}
