package execution

import (
	"context"
	"log/slog"
	"sync/atomic"

	"altbot/internal/dispatch"
	"altbot/internal/domain"
)

// Sink receives order events. It is called from the consumer goroutine only.
type Sink interface {
	OnEvent(ev domain.OrderEvent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(domain.OrderEvent)

func (f SinkFunc) OnEvent(ev domain.OrderEvent) { f(ev) }

// MultiSink fans each event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) OnEvent(ev domain.OrderEvent) {
	for _, s := range m {
		s.OnEvent(ev)
	}
}

// Consumer drains the dispatcher on its own goroutine.
type Consumer struct {
	src       *dispatch.Dispatcher
	sim       Simulator
	sink      Sink
	processed atomic.Uint64
}

// NewConsumer wires a consumer to the dispatcher's queue.
func NewConsumer(src *dispatch.Dispatcher, sim Simulator, sink Sink) *Consumer {
	return &Consumer{src: src, sim: sim, sink: sink}
}

// Processed returns how many intents have been turned into events.
func (c *Consumer) Processed() uint64 { return c.processed.Load() }

// Run consumes until ctx is cancelled or the dispatcher is closed and drained.
// Waiting for work is allowed here; the hot path never waits on this goroutine.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("Execution consumer started", slog.Int("queue_capacity", c.src.Cap()))
	defer func() {
		slog.Info("Execution consumer stopped", slog.Uint64("processed", c.processed.Load()))
	}()

	for {
		if in, ok := c.src.Next(); ok {
			c.handle(in)
			continue
		}
		if c.src.Closed() {
			// The producer is done; anything pushed before Close is visible now.
			for in, ok := c.src.Next(); ok; in, ok = c.src.Next() {
				c.handle(in)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.src.Notify():
		case <-c.src.Done():
		}
	}
}

// RunLimit processes exactly n intents and returns, or returns early with the
// context error or when the dispatcher is closed and empty.
func (c *Consumer) RunLimit(ctx context.Context, n int) (int, error) {
	done := 0
	for done < n {
		if in, ok := c.src.Next(); ok {
			c.handle(in)
			done++
			continue
		}
		if c.src.Closed() {
			if in, ok := c.src.Next(); ok {
				c.handle(in)
				done++
				continue
			}
			return done, nil
		}
		select {
		case <-ctx.Done():
			return done, ctx.Err()
		case <-c.src.Notify():
		case <-c.src.Done():
		}
	}
	return done, nil
}

func (c *Consumer) handle(in domain.OrderIntent) {
	for _, ev := range c.sim.Events(in) {
		c.sink.OnEvent(ev)
	}
	c.processed.Add(1)
}
