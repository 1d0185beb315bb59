package execution

import (
	"testing"

	"altbot/internal/domain"

	"github.com/stretchr/testify/assert"
)

type countingReleaser struct{ n int }

func (c *countingReleaser) OpenIntentReleased() { c.n++ }

func TestTracker_OrderedStream(t *testing.T) {
	rel := &countingReleaser{}
	tr := NewTracker(rel)

	for _, ev := range NewSimulator(DefaultAckDelay, DefaultFillDelay).Events(domain.OrderIntent{ID: 1}) {
		tr.OnEvent(ev)
	}
	assert.Equal(t, TrackerSnapshot{Submitted: 1, Acks: 1, Fills: 1}, tr.Snapshot())
	assert.Equal(t, 1, rel.n)
	assert.Zero(t, tr.Pending())
}

func TestTracker_Violations(t *testing.T) {
	tests := []struct {
		name  string
		kinds []domain.EventKind
		want  TrackerSnapshot
	}{
		{
			name:  "ack before submitted",
			kinds: []domain.EventKind{domain.EventAck},
			want:  TrackerSnapshot{Violations: 1},
		},
		{
			name:  "fill skips ack",
			kinds: []domain.EventKind{domain.EventSubmitted, domain.EventFill},
			want:  TrackerSnapshot{Submitted: 1, Violations: 1},
		},
		{
			name:  "duplicate submitted",
			kinds: []domain.EventKind{domain.EventSubmitted, domain.EventSubmitted},
			want:  TrackerSnapshot{Submitted: 1, Violations: 1},
		},
		{
			name:  "event after fill",
			kinds: []domain.EventKind{domain.EventSubmitted, domain.EventAck, domain.EventFill, domain.EventAck},
			want:  TrackerSnapshot{Submitted: 1, Acks: 1, Fills: 1, Violations: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := &countingReleaser{}
			tr := NewTracker(rel)
			for _, k := range tt.kinds {
				tr.OnEvent(domain.OrderEvent{Kind: k, IntentID: 7})
			}
			assert.Equal(t, tt.want, tr.Snapshot())
			assert.Equal(t, int(tt.want.Fills), rel.n)
		})
	}
}

func TestTracker_InterleavedIntents(t *testing.T) {
	tr := NewTracker(nil)
	tr.OnEvent(domain.OrderEvent{Kind: domain.EventSubmitted, IntentID: 1})
	tr.OnEvent(domain.OrderEvent{Kind: domain.EventSubmitted, IntentID: 2})
	tr.OnEvent(domain.OrderEvent{Kind: domain.EventAck, IntentID: 2})
	tr.OnEvent(domain.OrderEvent{Kind: domain.EventAck, IntentID: 1})
	tr.OnEvent(domain.OrderEvent{Kind: domain.EventFill, IntentID: 1})

	assert.Equal(t, TrackerSnapshot{Submitted: 2, Acks: 2, Fills: 1}, tr.Snapshot())
	assert.Equal(t, 1, tr.Pending())
}

func TestChanSink_DropsWhenFull(t *testing.T) {
	s := NewChanSink(2)
	for i := 0; i < 5; i++ {
		s.OnEvent(domain.OrderEvent{IntentID: uint64(i)})
	}
	assert.Equal(t, uint64(3), s.Dropped())
	assert.Equal(t, uint64(0), (<-s.C()).IntentID)
	assert.Equal(t, uint64(1), (<-s.C()).IntentID)
}

func TestSinkFunc(t *testing.T) {
	var got []uint64
	var s Sink = SinkFunc(func(ev domain.OrderEvent) { got = append(got, ev.IntentID) })
	MultiSink{s, s}.OnEvent(domain.OrderEvent{IntentID: 3})
	assert.Equal(t, []uint64{3, 3}, got)
}
