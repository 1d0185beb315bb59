package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"altbot/internal/admin"
	"altbot/internal/domain"
	"altbot/internal/feed"
	"altbot/internal/report"

	"github.com/google/uuid"
)

// Run modes recorded in the run store.
const (
	ModeBenchShadow = "bench-shadow"
	ModeLive        = "live"
)

// BenchOptions sizes a benchmark run.
type BenchOptions struct {
	NumTicks   int
	NumSymbols int
	Warmup     int // ticks inserted before measurement starts
}

// DefaultBenchOptions: 100k ticks over 300 symbols after a 1000-tick warmup.
func DefaultBenchOptions() BenchOptions {
	return BenchOptions{NumTicks: 100_000, NumSymbols: 300, Warmup: 1000}
}

// Result is what a finished run produced.
type Result struct {
	Summary   report.Summary
	Artifacts report.Artifacts
}

// RunBenchShadow drives the pipeline with the deterministic synthetic feed,
// then writes the report and appends the run to the store.
func (b *Bootstrap) RunBenchShadow(ctx context.Context, opts BenchOptions) (Result, error) {
	cfg := b.Config
	if opts.NumTicks <= 0 {
		return Result{}, &domain.ConfigError{Field: "num-ticks", Err: errors.New("must be positive")}
	}
	if opts.NumSymbols <= 0 || opts.NumSymbols > cfg.HotPath.MaxSymbols {
		return Result{}, &domain.ConfigError{
			Field: "num-symbols",
			Err:   fmt.Errorf("must be in [1, %d] (hotpath.max_symbols), got %d", cfg.HotPath.MaxSymbols, opts.NumSymbols),
		}
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		return Result{}, err
	}

	var src feed.Source = feed.NewSynthetic(uint32(opts.NumSymbols), opts.Warmup+opts.NumTicks)
	for i := 0; i < opts.Warmup; i++ {
		t, err := src.DecodeNext()
		if err != nil {
			return Result{}, fmt.Errorf("warmup: %w", err)
		}
		if err := p.HotPath.Warmup(t); err != nil {
			return Result{}, fmt.Errorf("warmup: %w", err)
		}
	}
	if cfg.Feed.RatePerSec > 0 {
		src = feed.NewPaced(ctx, src, cfg.Feed.RatePerSec)
	}

	slog.Info("Shadow benchmark starting",
		slog.Int("ticks", opts.NumTicks),
		slog.Int("symbols", opts.NumSymbols),
		slog.Int("warmup", opts.Warmup),
	)
	return b.run(ctx, p, ModeBenchShadow, src, nil)
}

// RunLive streams ticks from the configured websocket until ctx is cancelled.
// The admin surface runs alongside when enabled.
func (b *Bootstrap) RunLive(ctx context.Context) (Result, error) {
	cfg := b.Config
	if cfg.Feed.WSURL == "" {
		return Result{}, &domain.ConfigError{Field: "feed.ws_url", Err: errors.New("required for live mode")}
	}

	p, err := NewPipeline(cfg)
	if err != nil {
		return Result{}, err
	}

	ws := feed.NewWebSocket(cfg.Feed.WSURL, cfg.Feed.Buffer, p.Metrics)
	ws.Start(ctx)
	defer ws.Stop()

	var extra func(context.Context, *sync.WaitGroup)
	if cfg.Admin.Enabled {
		srv, err := admin.New(admin.Deps{
			Risk:    p.Gate,
			Metrics: p.Metrics,
			Queue:   p.Dispatcher,
			Events:  p.Tracker,
			Movers:  p.Maintenance,
		})
		if err != nil {
			return Result{}, err
		}
		extra = func(ctx context.Context, wg *sync.WaitGroup) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := srv.Run(ctx, cfg.Admin.Addr); err != nil {
					slog.Error("Admin server failed", slog.Any("error", err))
				}
			}()
		}
	}
	res, err := b.run(ctx, p, ModeLive, ws, extra)
	if ferr := ws.Err(); ferr != nil {
		err = errors.Join(err, ferr)
	}
	return res, err
}

// run owns the goroutine layout: the calling goroutine is the hot thread;
// consumer, event drain and maintenance each get their own.
func (b *Bootstrap) run(ctx context.Context, p *Pipeline, mode string, src feed.Source, extra func(context.Context, *sync.WaitGroup)) (Result, error) {
	cfg := b.Config
	runID := uuid.NewString()

	bgCtx, stopBg := context.WithCancel(ctx)
	var bg sync.WaitGroup

	bg.Add(2)
	go func() {
		defer bg.Done()
		if err := p.Maintenance.Run(bgCtx); err != nil && bgCtx.Err() == nil {
			slog.Error("Maintenance task failed", slog.Any("error", err))
		}
	}()
	go func() {
		defer bg.Done()
		drainEvents(bgCtx, p)
	}()
	if extra != nil {
		extra(bgCtx, &bg)
	}

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- p.Consumer.Run(context.Background())
	}()

	started := time.Now()
	runErr := p.HotPath.Run(ctx, src)
	finished := time.Now()

	// Closing the dispatcher lets the consumer drain what was enqueued.
	p.Dispatcher.Close()
	if err := <-consumerDone; err != nil {
		slog.Error("Execution consumer failed", slog.Any("error", err))
	}
	stopBg()
	bg.Wait()

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		runErr = nil
	}

	// The hot thread has returned, so it no longer writes the histogram.
	snap := p.Histogram.Snapshot()
	s := report.Build(report.Input{
		RunID:      runID,
		Mode:       mode,
		StartedAt:  started,
		FinishedAt: finished,
		Latency:    snap,
		Metrics:    p.Metrics.Snapshot(),
		Events:     p.Tracker.Snapshot(),
		TargetP95:  cfg.TargetP95(),
	})
	logSummary(s)

	res := Result{Summary: s}
	a, err := report.Write(cfg.Report.Dir, s, snap)
	if err != nil {
		return res, errors.Join(runErr, err)
	}
	res.Artifacts = a
	slog.Info("Report written", slog.String("json", a.JSON), slog.String("text", a.Text), slog.String("chart", a.Chart), slog.String("histogram", a.Hist))

	if b.Storage != nil {
		rec, err := s.Record()
		if err != nil {
			return res, errors.Join(runErr, err)
		}
		if err := b.Storage.SaveRun(&rec); err != nil {
			return res, errors.Join(runErr, fmt.Errorf("save run: %w", err))
		}
	}
	// A halted run still reports what it processed before stopping.
	return res, runErr
}

// drainEvents keeps the event channel moving; fills are logged at debug.
func drainEvents(ctx context.Context, p *Pipeline) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.Events.C():
			if ev.Kind == domain.EventFill {
				slog.Debug("ORDER_FILLED",
					slog.Uint64("intent_id", ev.IntentID),
					slog.Uint64("symbol_id", uint64(ev.SymbolID)),
					slog.String("price", ev.Price.String()),
				)
			}
		}
	}
}

func logSummary(s report.Summary) {
	slog.Info("=== Run Complete ===",
		slog.String("run_id", s.RunID),
		slog.String("mode", s.Mode),
		slog.Float64("duration_secs", s.DurationSecs),
		slog.Float64("throughput_tps", s.ThroughputTPS),
		slog.Uint64("triggers", s.Triggers),
		slog.Uint64("emitted_intents", s.EmittedIntents),
		slog.Uint64("dropped_intents", s.DroppedIntents),
		slog.Uint64("ack_count", s.AckCount),
		slog.Uint64("fill_count", s.FillCount),
		slog.Uint64("gate_block_count", s.GateBlockCount),
		slog.Uint64("cooldown_block_count", s.CooldownBlockCount),
		slog.Float64("p50_us", s.P50Us),
		slog.Float64("p95_us", s.P95Us),
		slog.Float64("p99_us", s.P99Us),
		slog.Float64("p99_9_us", s.P999Us),
	)
	if s.TargetMet {
		slog.Info("✓ PASS: p95 latency within target", slog.Float64("target_p95_ms", s.TargetP95Ms))
	} else {
		slog.Warn("⚠ WARN: p95 latency over target (non-failing)", slog.Float64("target_p95_ms", s.TargetP95Ms))
	}
}
