// Package maintenance recomputes long-horizon aggregates off the hot path.
// It only reads published window snapshots and never blocks the writer.
package maintenance

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"altbot/internal/trigger"
	"altbot/internal/window"
	"altbot/pkg/quant"
)

// DefaultInterval between passes.
const DefaultInterval = time.Second

// Replenisher receives budget top-ups. *risk.Gate satisfies it.
type Replenisher interface {
	Replenish(n int64)
}

// SymbolAggregate is the per-symbol output of one pass.
type SymbolAggregate struct {
	SymbolID        uint32         `json:"symbol_id"`
	Last            quant.PriceE8  `json:"last"`
	LastTs          quant.TsMillis `json:"last_ts"`
	Samples         int            `json:"samples"`
	SnapshotVersion uint64         `json:"snapshot_version"`
	Return60s       quant.ReturnE8 `json:"return_60s_e8"`
	Defined60s      bool           `json:"defined_60s"`
	AboveThreshold  bool           `json:"above_threshold"`
	Return15m       quant.ReturnE8 `json:"return_15m_e8"`
	Defined15m      bool           `json:"defined_15m"`
	Return1h        quant.ReturnE8 `json:"return_1h_e8"`
	Defined1h       bool           `json:"defined_1h"`
}

// Aggregates is published atomically after every pass and never mutated.
type Aggregates struct {
	Pass        uint64            `json:"pass"`
	GeneratedAt time.Time         `json:"generated_at"`
	Symbols     []SymbolAggregate `json:"symbols"`
}

// Config for a Task. A zero Threshold uses trigger.DefaultThreshold.
type Config struct {
	Interval         time.Duration
	ReplenishPerPass int64
	Threshold        quant.ReturnE8
}

// Task owns the minute rings and the movers index.
type Task struct {
	win      *window.Window
	budget   Replenisher
	cfg      Config
	eval     trigger.Evaluator
	rings    []minuteRing
	lastSeen []uint64 // snapshot version folded last, per symbol
	movers   *moversIndex
	latest   atomic.Pointer[Aggregates]
	passes   atomic.Uint64
}

// New creates a maintenance task. budget may be nil.
func New(win *window.Window, budget Replenisher, cfg Config) *Task {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = trigger.DefaultThreshold
	}
	n := win.MaxSymbols()
	t := &Task{
		win:      win,
		budget:   budget,
		cfg:      cfg,
		eval:     trigger.New(cfg.Threshold, win.HorizonMs()),
		rings:    make([]minuteRing, n),
		lastSeen: make([]uint64, n),
		movers:   newMoversIndex(),
	}
	t.latest.Store(&Aggregates{})
	return t
}

// Run executes a pass every interval until ctx is done.
func (t *Task) Run(ctx context.Context) error {
	slog.Info("Maintenance task started", slog.Duration("interval", t.cfg.Interval))
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Maintenance task stopping", slog.Uint64("passes", t.passes.Load()))
			return ctx.Err()
		case <-ticker.C:
			t.RunOnce()
		}
	}
}

// RunOnce performs one pass synchronously. Not safe to call concurrently with itself.
func (t *Task) RunOnce() *Aggregates {
	out := &Aggregates{
		Pass:        t.passes.Add(1),
		GeneratedAt: time.Now(),
	}

	for id := range t.rings {
		symbol := uint32(id)
		snap, err := t.win.Acquire(symbol)
		if err != nil {
			break
		}
		agg, ok := t.fold(symbol, snap)
		snap.Release()
		if !ok {
			continue
		}
		t.movers.update(symbol, agg.Return1h, agg.Defined1h)
		out.Symbols = append(out.Symbols, agg)
	}

	if t.budget != nil && t.cfg.ReplenishPerPass > 0 {
		t.budget.Replenish(t.cfg.ReplenishPerPass)
	}

	t.latest.Store(out)
	return out
}

func (t *Task) fold(symbol uint32, snap *window.Snapshot) (SymbolAggregate, bool) {
	if snap.Version() == 0 {
		return SymbolAggregate{}, false
	}
	v := snap.View()
	if v.Len() == 0 {
		return SymbolAggregate{}, false
	}
	ring := &t.rings[symbol]
	if snap.Version() != t.lastSeen[symbol] {
		for i := 0; i < v.Len(); i++ {
			s := v.At(i)
			ring.record(s.Price, s.Ts)
		}
		t.lastSeen[symbol] = snap.Version()
	}

	last := v.Latest()
	agg := SymbolAggregate{
		SymbolID:        symbol,
		Last:            last.Price,
		LastTs:          last.Ts,
		Samples:         v.Len(),
		SnapshotVersion: snap.Version(),
	}
	// Same evaluation the hot thread ran, as of the newest published sample.
	tr := t.eval.EvaluateSnapshot(snap, last.Ts)
	agg.Return60s, agg.Defined60s, agg.AboveThreshold = tr.Return, tr.Defined, tr.Fired
	agg.Return15m, agg.Defined15m = ring.trailing(last.Price, last.Ts, 15)
	agg.Return1h, agg.Defined1h = ring.trailing(last.Price, last.Ts, 60)
	return agg, true
}

// Latest returns the most recently published aggregates.
func (t *Task) Latest() *Aggregates { return t.latest.Load() }

// Passes returns the number of completed passes.
func (t *Task) Passes() uint64 { return t.passes.Load() }

// TopMovers returns up to n symbols ranked by 1h return, highest first.
func (t *Task) TopMovers(n int) []Mover { return t.movers.top(n) }
