package execution

import (
	"log/slog"
	"sync/atomic"
	"time"

	"altbot/internal/domain"

	"golang.org/x/time/rate"
)

// ChanSink forwards events to a bounded channel for downstream consumers.
// A full channel drops the event; drops are counted and logged at most once per second.
type ChanSink struct {
	ch      chan domain.OrderEvent
	dropped atomic.Uint64
	logLim  *rate.Limiter
}

// NewChanSink creates a sink with the given buffer size.
func NewChanSink(buffer int) *ChanSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChanSink{
		ch:     make(chan domain.OrderEvent, buffer),
		logLim: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// C returns the receive side.
func (s *ChanSink) C() <-chan domain.OrderEvent { return s.ch }

// OnEvent implements Sink.
func (s *ChanSink) OnEvent(ev domain.OrderEvent) {
	select {
	case s.ch <- ev:
	default:
		n := s.dropped.Add(1)
		if s.logLim.Allow() {
			slog.Warn("Order event sink full, dropping", slog.Uint64("dropped_total", n))
		}
	}
}

// Dropped returns the number of events lost to a full channel.
func (s *ChanSink) Dropped() uint64 { return s.dropped.Load() }
