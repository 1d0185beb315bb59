// Package execution is the consumer side of the intent queue. In shadow mode it
// simulates the venue: every intent yields Submitted, Ack and Fill with fixed delays.
package execution

import (
	"time"

	"altbot/internal/domain"
	"altbot/pkg/quant"
)

// Default venue delays.
const (
	DefaultAckDelay  = 50 * time.Microsecond
	DefaultFillDelay = 100 * time.Microsecond
)

// Simulator derives the event stream of an intent from the intent's own timestamp.
// It never reads the wall clock, so runs are reproducible.
type Simulator struct {
	AckDelayUs  uint64
	FillDelayUs uint64
}

// NewSimulator converts the configured delays to whole microseconds.
func NewSimulator(ack, fill time.Duration) Simulator {
	return Simulator{
		AckDelayUs:  uint64(ack / time.Microsecond),
		FillDelayUs: uint64(fill / time.Microsecond),
	}
}

// Events returns the Submitted, Ack and Fill events for in, in that order.
func (s Simulator) Events(in domain.OrderIntent) [3]domain.OrderEvent {
	submitted := uint64(in.Ts) * 1000
	ack := submitted + s.AckDelayUs
	fill := ack + s.FillDelayUs
	return [3]domain.OrderEvent{
		s.event(domain.EventSubmitted, in, submitted),
		s.event(domain.EventAck, in, ack),
		s.event(domain.EventFill, in, fill),
	}
}

func (s Simulator) event(kind domain.EventKind, in domain.OrderIntent, us uint64) domain.OrderEvent {
	return domain.OrderEvent{
		Kind:     kind,
		IntentID: in.ID,
		SymbolID: in.SymbolID,
		Price:    in.Price,
		Ts:       quant.TsMillis(us / 1000),
		TsMicros: us,
	}
}
