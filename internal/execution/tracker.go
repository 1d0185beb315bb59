package execution

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"altbot/internal/domain"
)

// Releaser is told when an intent reaches its terminal event.
type Releaser interface {
	OpenIntentReleased()
}

// Tracker counts events, verifies Submitted → Ack → Fill per intent and releases
// the open-intent slot on Fill.
type Tracker struct {
	releaser Releaser

	mu      sync.Mutex
	pending map[uint64]domain.EventKind

	submitted  atomic.Uint64
	acks       atomic.Uint64
	fills      atomic.Uint64
	violations atomic.Uint64
}

// NewTracker creates a tracker. releaser may be nil.
func NewTracker(releaser Releaser) *Tracker {
	return &Tracker{
		releaser: releaser,
		pending:  make(map[uint64]domain.EventKind),
	}
}

// OnEvent implements Sink.
func (t *Tracker) OnEvent(ev domain.OrderEvent) {
	t.mu.Lock()
	prev, seen := t.pending[ev.IntentID]
	ok := (ev.Kind == domain.EventSubmitted && !seen) ||
		(seen && ev.Kind == prev+1)
	if ok {
		if ev.Kind.IsTerminal() {
			delete(t.pending, ev.IntentID)
		} else {
			t.pending[ev.IntentID] = ev.Kind
		}
	}
	t.mu.Unlock()

	if !ok {
		t.violations.Add(1)
		slog.Error("ORDER_EVENT_OUT_OF_SEQUENCE",
			slog.Uint64("intent_id", ev.IntentID),
			slog.String("kind", ev.Kind.String()),
			slog.String("previous", prev.String()),
		)
		return
	}

	switch ev.Kind {
	case domain.EventSubmitted:
		t.submitted.Add(1)
	case domain.EventAck:
		t.acks.Add(1)
	case domain.EventFill:
		t.fills.Add(1)
		if t.releaser != nil {
			t.releaser.OpenIntentReleased()
		}
	}
}

// Pending returns the number of intents that have not filled yet.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// TrackerSnapshot is a point-in-time read of the counters.
type TrackerSnapshot struct {
	Submitted  uint64 `json:"submitted"`
	Acks       uint64 `json:"acks"`
	Fills      uint64 `json:"fills"`
	Violations uint64 `json:"order_violations"`
}

// Snapshot reads the counters. Fills are read first so that
// fills ≤ acks ≤ submitted holds even while events are still arriving.
func (t *Tracker) Snapshot() TrackerSnapshot {
	fills := t.fills.Load()
	acks := t.acks.Load()
	return TrackerSnapshot{
		Fills:      fills,
		Acks:       acks,
		Submitted:  t.submitted.Load(),
		Violations: t.violations.Load(),
	}
}
