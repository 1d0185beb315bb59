package report

import (
	"time"

	"altbot/internal/execution"
	"altbot/internal/infra"
	"altbot/internal/latency"

	"github.com/shopspring/decimal"
)

// Verdicts for the p95 target. Missing the target is a warning, never a failure.
const (
	VerdictPass = "PASS"
	VerdictWarn = "WARN"
)

// Input is everything read from the core at run end.
type Input struct {
	RunID      string
	Mode       string
	StartedAt  time.Time
	FinishedAt time.Time
	Latency    latency.Snapshot
	Metrics    infra.MetricsSnapshot
	Events     execution.TrackerSnapshot
	TargetP95  time.Duration
}

// Summary is the end-of-run report. Latencies are microseconds.
type Summary struct {
	RunID        string    `json:"run_id"`
	Mode         string    `json:"mode"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationSecs float64   `json:"duration_secs"`

	Count    uint64  `json:"count"`
	Overflow uint64  `json:"overflow"`
	MinUs    float64 `json:"min_us"`
	MaxUs    float64 `json:"max_us"`
	MeanUs   float64 `json:"mean_us"`
	P50Us    float64 `json:"p50_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
	P999Us   float64 `json:"p99_9_us"`

	ThroughputTPS float64 `json:"throughput_tps"`

	Ticks              uint64 `json:"ticks"`
	Triggers           uint64 `json:"triggers"`
	EmittedIntents     uint64 `json:"emitted_intents"`
	DroppedIntents     uint64 `json:"dropped_intents"`
	Submitted          uint64 `json:"submitted_count"`
	AckCount           uint64 `json:"ack_count"`
	FillCount          uint64 `json:"fill_count"`
	OrderViolations    uint64 `json:"order_violations"`
	GateBlockCount     uint64 `json:"gate_block_count"`
	CooldownBlockCount uint64 `json:"cooldown_block_count"`
	BlockedBuyDisabled uint64 `json:"blocked_buy_disabled"`
	BlockedBudget      uint64 `json:"blocked_budget"`
	BlockedOpenIntents uint64 `json:"blocked_open_intents"`
	UndefinedReturns   uint64 `json:"undefined_returns"`
	SymbolRejects      uint64 `json:"symbol_rejects"`
	DecodeErrors       uint64 `json:"decode_errors"`

	TargetP95Ms float64 `json:"target_p95_ms"`
	TargetMet   bool    `json:"target_met"`
	Verdict     string  `json:"verdict"`
}

// Build derives the summary. Every value is a direct read of the inputs.
func Build(in Input) Summary {
	dur := in.FinishedAt.Sub(in.StartedAt)
	s := Summary{
		RunID:        in.RunID,
		Mode:         in.Mode,
		StartedAt:    in.StartedAt,
		FinishedAt:   in.FinishedAt,
		DurationSecs: dur.Seconds(),

		Count:    in.Latency.Count(),
		Overflow: in.Latency.Overflow(),
		MinUs:    Micros(in.Latency.Min()),
		MaxUs:    Micros(in.Latency.Max()),
		MeanUs:   Micros(in.Latency.Mean()),
		P50Us:    Micros(in.Latency.P50()),
		P95Us:    Micros(in.Latency.P95()),
		P99Us:    Micros(in.Latency.P99()),
		P999Us:   Micros(in.Latency.P999()),

		Ticks:              in.Metrics.Ticks,
		Triggers:           in.Metrics.Triggers,
		EmittedIntents:     in.Metrics.Emitted,
		DroppedIntents:     in.Metrics.Dropped,
		Submitted:          in.Events.Submitted,
		AckCount:           in.Events.Acks,
		FillCount:          in.Events.Fills,
		OrderViolations:    in.Events.Violations,
		GateBlockCount:     in.Metrics.GateBlocks(),
		CooldownBlockCount: in.Metrics.BlockedCooldown,
		BlockedBuyDisabled: in.Metrics.BlockedBuyDisabled,
		BlockedBudget:      in.Metrics.BlockedBudget,
		BlockedOpenIntents: in.Metrics.BlockedOpenIntents,
		UndefinedReturns:   in.Metrics.UndefinedReturns,
		SymbolRejects:      in.Metrics.SymbolRejects,
		DecodeErrors:       in.Metrics.DecodeErrors,

		TargetP95Ms: Millis(in.TargetP95),
	}
	if dur > 0 {
		s.ThroughputTPS = decimal.NewFromInt(int64(in.Metrics.Ticks)).
			Div(decimal.NewFromFloat(dur.Seconds())).Round(1).InexactFloat64()
	}
	s.TargetMet = in.TargetP95 <= 0 || in.Latency.P95() <= in.TargetP95
	s.Verdict = VerdictWarn
	if s.TargetMet {
		s.Verdict = VerdictPass
	}
	return s
}

// Micros renders d in microseconds, rounded to the nanosecond.
func Micros(d time.Duration) float64 {
	return decimal.NewFromInt(int64(d)).Shift(-3).InexactFloat64()
}

// Millis renders d in milliseconds, rounded to the nanosecond.
func Millis(d time.Duration) float64 {
	return decimal.NewFromInt(int64(d)).Shift(-6).InexactFloat64()
}
