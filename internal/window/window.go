package window

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"altbot/internal/domain"
	"altbot/pkg/quant"
)

// Config sizes the window at construction. Nothing grows afterwards.
type Config struct {
	MaxSymbols   int
	Horizon      time.Duration
	Capacity     int // samples per symbol: worst-case ticks/sec × horizon seconds
	SnapshotPool int // published buffers per symbol
}

// DefaultConfig mirrors the production defaults: 60s horizon, 100 ticks/sec budget.
func DefaultConfig(maxSymbols int) Config {
	return Config{
		MaxSymbols:   maxSymbols,
		Horizon:      60 * time.Second,
		Capacity:     60 * 100,
		SnapshotPool: 2,
	}
}

type symbolWindow struct {
	live    ring
	current atomic.Pointer[Snapshot]
	pool    []*Snapshot
	version uint64
	_       [64]byte // keep neighbouring symbols' hot fields off this cache line
}

// Window holds the trailing price windows of every symbol.
//
// Insert and Publish belong to the single writer (the hot thread). Acquire may be
// called from any goroutine and never blocks the writer.
type Window struct {
	horizonMs uint64
	symbols   []symbolWindow

	overwritten    atomic.Uint64
	publishSkipped atomic.Uint64
}

// New pre-allocates every ring and snapshot buffer.
func New(cfg Config) (*Window, error) {
	if cfg.MaxSymbols <= 0 {
		return nil, fmt.Errorf("window: max symbols must be positive, got %d", cfg.MaxSymbols)
	}
	if cfg.Capacity < 2 {
		return nil, fmt.Errorf("window: capacity must be at least 2, got %d", cfg.Capacity)
	}
	if cfg.Horizon < time.Millisecond {
		return nil, fmt.Errorf("window: horizon must be at least 1ms, got %s", cfg.Horizon)
	}
	if cfg.SnapshotPool < 2 {
		cfg.SnapshotPool = 2
	}

	w := &Window{
		horizonMs: uint64(cfg.Horizon / time.Millisecond),
		symbols:   make([]symbolWindow, cfg.MaxSymbols),
	}
	for i := range w.symbols {
		sw := &w.symbols[i]
		sw.live = newRing(cfg.Capacity)
		sw.pool = make([]*Snapshot, cfg.SnapshotPool)
		for j := range sw.pool {
			sw.pool[j] = &Snapshot{symbol: uint32(i), samples: make([]Sample, 0, cfg.Capacity)}
		}
		sw.current.Store(sw.pool[0])
	}
	return w, nil
}

// MaxSymbols returns the number of pre-allocated symbol slots.
func (w *Window) MaxSymbols() int { return len(w.symbols) }

// HorizonMs returns the trailing horizon in milliseconds.
func (w *Window) HorizonMs() uint64 { return w.horizonMs }

// Insert records a price for a symbol. Writer only.
func (w *Window) Insert(symbol uint32, price quant.PriceE8, ts quant.TsMillis) error {
	if int(symbol) >= len(w.symbols) {
		return domain.ErrSymbolOutOfRange
	}
	if w.symbols[symbol].live.insert(Sample{Price: price, Ts: ts}, w.horizonMs) {
		w.overwritten.Add(1)
	}
	return nil
}

// Live returns the writer's own view of a symbol. Writer only; the view is
// invalidated by the next Insert for the same symbol.
func (w *Window) Live(symbol uint32) View {
	return w.symbols[symbol].live.view()
}

// TrailingReturn evaluates the configured horizon over a view.
func (w *Window) TrailingReturn(v View, now quant.TsMillis) (quant.ReturnE8, bool) {
	return TrailingReturn(v, now, w.horizonMs)
}

// Publish copies the live window into a free snapshot buffer and swaps it in with a
// single atomic store. It returns false when every spare buffer is still held by a
// reader; the previous snapshot then stays current. Writer only.
func (w *Window) Publish(symbol uint32) bool {
	sw := &w.symbols[symbol]
	cur := sw.current.Load()

	var next *Snapshot
	for _, s := range sw.pool {
		if s != cur && !s.held() {
			next = s
			break
		}
	}
	if next == nil {
		w.publishSkipped.Add(1)
		return false
	}

	n := sw.live.copyTo(next.samples[:cap(next.samples)])
	next.samples = next.samples[:n]
	next.newest = sw.live.newest
	sw.version++
	next.version = sw.version

	sw.current.Store(next)
	return true
}

// Acquire returns the current snapshot of a symbol with a reference held.
// It is safe from any goroutine. The caller must Release it.
func (w *Window) Acquire(symbol uint32) (*Snapshot, error) {
	if int(symbol) >= len(w.symbols) {
		return nil, domain.ErrSymbolOutOfRange
	}
	sw := &w.symbols[symbol]
	for spins := 0; ; spins++ {
		s := sw.current.Load()
		s.refs.Add(1)
		if sw.current.Load() == s {
			return s, nil
		}
		// The writer swapped while we were pinning; the buffer may be recycled.
		s.refs.Add(-1)
		if spins > 16 {
			runtime.Gosched()
		}
	}
}

// Overwritten counts samples lost because a ring was full before they aged out.
func (w *Window) Overwritten() uint64 { return w.overwritten.Load() }

// PublishSkipped counts publications skipped because readers held every spare buffer.
func (w *Window) PublishSkipped() uint64 { return w.publishSkipped.Load() }
