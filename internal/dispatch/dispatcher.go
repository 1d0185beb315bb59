// Package dispatch turns accepted triggers into order intents and hands them to
// the execution stage without ever blocking the hot path.
package dispatch

import (
	"sync/atomic"

	"altbot/internal/domain"
	"altbot/pkg/quant"
)

// DefaultCapacity is the queue size used when none is configured.
const DefaultCapacity = 1000

// Result of one emission attempt.
type Result uint8

const (
	Enqueued Result = iota
	DroppedFull
)

func (r Result) String() string {
	if r == Enqueued {
		return "enqueued"
	}
	return "dropped_full"
}

// Dispatcher owns the producer side of the intent ring.
type Dispatcher struct {
	ring   *Ring
	notify chan struct{}
	done   chan struct{}
	closed atomic.Bool

	nextID   uint64 // producer only
	enqueued atomic.Uint64
	dropped  atomic.Uint64
}

// New creates a dispatcher with a ring of the given capacity.
func New(capacity int) (*Dispatcher, error) {
	r, err := NewRing(capacity)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		ring:   r,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}, nil
}

// TryEmit builds an intent for the accepted trigger and enqueues it.
// It never blocks, never retries and never rolls back gate charges.
func (d *Dispatcher) TryEmit(symbol uint32, price quant.PriceE8, ts quant.TsMillis) (domain.OrderIntent, Result) {
	d.nextID++
	in := domain.OrderIntent{
		ID:       d.nextID,
		SymbolID: symbol,
		Side:     domain.SideBuy,
		Price:    price,
		Ts:       ts,
	}
	if !d.ring.TryPush(in) {
		d.dropped.Add(1)
		return in, DroppedFull
	}
	d.enqueued.Add(1)
	select {
	case d.notify <- struct{}{}:
	default:
	}
	return in, Enqueued
}

// Close marks the end of production. The consumer drains what is queued and stops.
func (d *Dispatcher) Close() {
	if d.closed.CompareAndSwap(false, true) {
		close(d.done)
	}
}

// Next pops one intent without waiting.
func (d *Dispatcher) Next() (domain.OrderIntent, bool) {
	return d.ring.TryPop()
}

// Notify fires after a successful enqueue; at most one wake-up is pending.
func (d *Dispatcher) Notify() <-chan struct{} { return d.notify }

// Done is closed by Close.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

// Closed reports whether Close was called.
func (d *Dispatcher) Closed() bool { return d.closed.Load() }

// Len returns the approximate queue depth.
func (d *Dispatcher) Len() int { return d.ring.Len() }

// Cap returns the queue capacity.
func (d *Dispatcher) Cap() int { return d.ring.Cap() }

// Enqueued returns the number of intents handed to the queue.
func (d *Dispatcher) Enqueued() uint64 { return d.enqueued.Load() }

// Dropped returns the number of intents lost to a full queue.
func (d *Dispatcher) Dropped() uint64 { return d.dropped.Load() }
