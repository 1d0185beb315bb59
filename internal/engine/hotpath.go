package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"altbot/internal/dispatch"
	"altbot/internal/domain"
	"altbot/internal/feed"
	"altbot/internal/infra"
	"altbot/internal/latency"
	"altbot/internal/risk"
	"altbot/internal/trigger"
	"altbot/internal/window"
	"altbot/pkg/quant"

	"github.com/goccy/go-json"
)

// DecodePolicy decides what Run does with a tick the source could not decode.
type DecodePolicy uint8

const (
	DecodeSkip DecodePolicy = iota
	DecodeHalt
)

// ParseDecodePolicy maps "skip" and "halt".
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch s {
	case "", "skip":
		return DecodeSkip, nil
	case "halt":
		return DecodeHalt, nil
	default:
		return DecodeSkip, fmt.Errorf("unknown decode error policy %q", s)
	}
}

// Deps are the per-run components the hot thread drives. All are required.
type Deps struct {
	Window     *window.Window
	Evaluator  trigger.Evaluator
	Gate       *risk.Gate
	Dispatcher *dispatch.Dispatcher
	Recorder   *latency.Recorder
	Metrics    *infra.Metrics
}

// Config tunes the hot thread.
type Config struct {
	PublishInterval time.Duration // 0 publishes after every insert
	DecodePolicy    DecodePolicy
	DumpPath        string
}

// HotPath is the single-threaded tick processor: insert → publish → evaluate →
// gate → emit → record. ProcessTick and Run must be called from one goroutine.
type HotPath struct {
	d   Deps
	cfg Config

	publishMs   uint64
	lastPublish []quant.TsMillis
	published   []bool

	// Boundary: notified of triggered decisions only
	onDecision func(domain.Decision)

	processed atomic.Uint64
	halted    atomic.Bool
}

// New creates the hot path. Per-symbol publish bookkeeping is pre-allocated.
func New(d Deps, cfg Config) (*HotPath, error) {
	if d.Window == nil || d.Gate == nil || d.Dispatcher == nil || d.Recorder == nil || d.Metrics == nil {
		return nil, errors.New("engine: missing dependency")
	}
	if cfg.DumpPath == "" {
		cfg.DumpPath = "panic_dump.json"
	}
	n := d.Window.MaxSymbols()
	return &HotPath{
		d:           d,
		cfg:         cfg,
		publishMs:   uint64(cfg.PublishInterval / time.Millisecond),
		lastPublish: make([]quant.TsMillis, n),
		published:   make([]bool, n),
	}, nil
}

// OnDecision registers a hook for triggered decisions. Set before Run.
func (h *HotPath) OnDecision(fn func(domain.Decision)) {
	h.onDecision = fn
}

// Processed returns the number of ticks processed.
func (h *HotPath) Processed() uint64 { return h.processed.Load() }

// Halted reports whether Run stopped on a fatal condition.
func (h *HotPath) Halted() bool { return h.halted.Load() }

// Warmup inserts and publishes a tick without evaluating it.
func (h *HotPath) Warmup(t domain.RawTick) error {
	if err := h.d.Window.Insert(t.SymbolID, t.Price, t.Ts); err != nil {
		return err
	}
	h.maybePublish(t.SymbolID, t.Ts)
	return nil
}

// ProcessTick runs one tick through the pipeline. It never blocks and never
// allocates; every negative result is an Outcome, not an error.
func (h *HotPath) ProcessTick(t domain.RawTick, arrival latency.Stamp) domain.Decision {
	dec := domain.Decision{SymbolID: t.SymbolID, Price: t.Price, Ts: t.Ts}
	dec.Outcome = h.decide(t, &dec)

	h.d.Metrics.RecordLatency(h.d.Recorder.Stop(arrival))
	h.d.Metrics.RecordOutcome(dec.Outcome)
	h.processed.Add(1)

	if h.onDecision != nil && dec.Outcome.Triggered() {
		h.onDecision(dec)
	}
	return dec
}

func (h *HotPath) decide(t domain.RawTick, dec *domain.Decision) domain.Outcome {
	// 1. Bounds check
	if int(t.SymbolID) >= h.d.Window.MaxSymbols() {
		return domain.OutcomeSymbolRejected
	}

	// 2. Window update
	if err := h.d.Window.Insert(t.SymbolID, t.Price, t.Ts); err != nil {
		return domain.OutcomeSymbolRejected
	}
	h.maybePublish(t.SymbolID, t.Ts)

	// 3. Trigger
	trig := h.d.Evaluator.Evaluate(t.SymbolID, h.d.Window.Live(t.SymbolID), t.Price, t.Ts)
	dec.Return, dec.Defined = trig.Return, trig.Defined
	if !trig.Defined {
		return domain.OutcomeUndefined
	}
	if !trig.Fired {
		return domain.OutcomeNoTrigger
	}

	// 4. Gates
	if v := h.d.Gate.Check(t.SymbolID, t.Ts); v != risk.Accepted {
		return v.Outcome()
	}

	// 5. Emit
	h.d.Gate.IntentEnqueued()
	in, res := h.d.Dispatcher.TryEmit(t.SymbolID, t.Price, t.Ts)
	if res == dispatch.DroppedFull {
		h.d.Gate.CancelIntent()
		return domain.OutcomeDropped
	}
	dec.IntentID = in.ID
	return domain.OutcomeEnqueued
}

func (h *HotPath) maybePublish(symbol uint32, ts quant.TsMillis) {
	last := h.lastPublish[symbol]
	due := h.publishMs == 0 || !h.published[symbol] ||
		(ts >= last && uint64(ts-last) >= h.publishMs)
	if due && h.d.Window.Publish(symbol) {
		h.lastPublish[symbol] = ts
		h.published[symbol] = true
	}
}

// Run pulls ticks until the source ends, ctx is cancelled, or a decode error
// halts the run under DecodeHalt. An unexpected panic dumps state and halts.
func (h *HotPath) Run(ctx context.Context, src feed.Source) error {
	slog.Info("Hot path started (single-thread)")

	defer func() {
		if r := recover(); r != nil {
			h.halted.Store(true)
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			h.DumpState(h.cfg.DumpPath)
			// Risk accounting cannot be trusted past this point.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for i := uint64(0); ; i++ {
		if i&1023 == 0 && ctx.Err() != nil {
			slog.Info("Hot path stopping...", slog.Uint64("processed", h.processed.Load()))
			return ctx.Err()
		}

		t, err := src.DecodeNext()
		arrival := h.d.Recorder.Start()
		if err == io.EOF {
			slog.Info("Tick source exhausted", slog.Uint64("processed", h.processed.Load()))
			return nil
		}
		if err != nil {
			h.d.Metrics.RecordDecodeError()
			if h.cfg.DecodePolicy == DecodeHalt {
				h.halted.Store(true)
				slog.Error("DECODE_ERROR_HALT", slog.Any("error", err))
				return fmt.Errorf("engine: halted on decode error: %w", err)
			}
			continue
		}
		h.ProcessTick(t, arrival)
	}
}

// DumpState writes the hot path's counters and gate state to a file (for post-mortem).
func (h *HotPath) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		Processed      uint64                `json:"processed"`
		Halted         bool                  `json:"halted"`
		Gate           risk.State            `json:"gate"`
		Metrics        infra.MetricsSnapshot `json:"metrics"`
		QueueDepth     int                   `json:"queue_depth"`
		Enqueued       uint64                `json:"enqueued"`
		Dropped        uint64                `json:"dropped"`
		Overwritten    uint64                `json:"window_overwritten"`
		PublishSkipped uint64                `json:"publish_skipped"`
	}{
		Processed:      h.processed.Load(),
		Halted:         h.halted.Load(),
		Gate:           h.d.Gate.State(),
		Metrics:        h.d.Metrics.Snapshot(),
		QueueDepth:     h.d.Dispatcher.Len(),
		Enqueued:       h.d.Dispatcher.Enqueued(),
		Dropped:        h.d.Dispatcher.Dropped(),
		Overwritten:    h.d.Window.Overwritten(),
		PublishSkipped: h.d.Window.PublishSkipped(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
