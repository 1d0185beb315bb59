package app

import (
	"fmt"

	"altbot/internal/dispatch"
	"altbot/internal/engine"
	"altbot/internal/execution"
	"altbot/internal/infra"
	"altbot/internal/latency"
	"altbot/internal/maintenance"
	"altbot/internal/risk"
	"altbot/internal/trigger"
	"altbot/internal/window"
)

// Pipeline is one run's worth of wired components. Nothing is shared between runs.
type Pipeline struct {
	Window      *window.Window
	Gate        *risk.Gate
	Dispatcher  *dispatch.Dispatcher
	Histogram   *latency.Histogram
	Metrics     *infra.Metrics
	HotPath     *engine.HotPath
	Tracker     *execution.Tracker
	Events      *execution.ChanSink
	Consumer    *execution.Consumer
	Maintenance *maintenance.Task
}

// NewPipeline builds every component from cfg. All hot-path memory is
// allocated here.
func NewPipeline(cfg *infra.Config) (*Pipeline, error) {
	win, err := window.New(window.Config{
		MaxSymbols:   cfg.HotPath.MaxSymbols,
		Horizon:      cfg.Window(),
		Capacity:     cfg.WindowCapacity(),
		SnapshotPool: cfg.HotPath.SnapshotPool,
	})
	if err != nil {
		return nil, fmt.Errorf("window: %w", err)
	}

	gate, err := risk.New(risk.Config{
		MaxSymbols:     cfg.HotPath.MaxSymbols,
		InitialBudget:  cfg.Risk.InitialBudget,
		MaxOpenIntents: cfg.Risk.MaxOpenIntents,
		Cooldown:       cfg.Cooldown(),
		BuyEnabled:     cfg.Risk.BuyEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("risk gate: %w", err)
	}

	disp, err := dispatch.New(cfg.Dispatch.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	policy, err := engine.ParseDecodePolicy(cfg.Engine.DecodeErrorPolicy)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		Window:     win,
		Gate:       gate,
		Dispatcher: disp,
		Histogram:  latency.NewHistogram(latency.DefaultMax),
		Metrics:    &infra.Metrics{},
	}

	p.HotPath, err = engine.New(engine.Deps{
		Window:     win,
		Evaluator:  trigger.New(cfg.Threshold(), win.HorizonMs()),
		Gate:       gate,
		Dispatcher: disp,
		Recorder:   latency.NewRecorder(p.Histogram),
		Metrics:    p.Metrics,
	}, engine.Config{
		PublishInterval: cfg.PublishInterval(),
		DecodePolicy:    policy,
		DumpPath:        cfg.Engine.DumpPath,
	})
	if err != nil {
		return nil, err
	}

	p.Tracker = execution.NewTracker(gate)
	p.Events = execution.NewChanSink(cfg.Execution.EventBuffer)
	p.Consumer = execution.NewConsumer(
		disp,
		execution.NewSimulator(cfg.AckDelay(), cfg.FillDelay()),
		execution.MultiSink{p.Tracker, p.Events},
	)
	p.Maintenance = maintenance.New(win, gate, maintenance.Config{
		Interval:         cfg.MaintenanceInterval(),
		ReplenishPerPass: cfg.Risk.ReplenishPerPass,
		Threshold:        cfg.Threshold(),
	})
	return p, nil
}
