package infra

import (
	"sync/atomic"
	"time"

	"altbot/internal/domain"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. One instance per run.
type Metrics struct {
	// Hot path counters
	ticks          atomic.Uint64
	decodeErrors   atomic.Uint64
	symbolRejects  atomic.Uint64
	undefined      atomic.Uint64
	noTrigger      atomic.Uint64
	triggers       atomic.Uint64
	buyDisabled    atomic.Uint64
	budgetBlocks   atomic.Uint64
	openBlocks     atomic.Uint64
	cooldownBlocks atomic.Uint64
	emitted        atomic.Uint64
	dropped        atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Feed
	feedDropped       atomic.Uint64
	reconnects        atomic.Uint64
	activeConnections atomic.Int32
}

// RecordOutcome counts one processed tick by what happened to it.
func (m *Metrics) RecordOutcome(o domain.Outcome) {
	m.ticks.Add(1)
	if o.Triggered() {
		m.triggers.Add(1)
	}
	switch o {
	case domain.OutcomeNoTrigger:
		m.noTrigger.Add(1)
	case domain.OutcomeUndefined:
		m.undefined.Add(1)
	case domain.OutcomeSymbolRejected:
		m.symbolRejects.Add(1)
	case domain.OutcomeBlockedBuyDisabled:
		m.buyDisabled.Add(1)
	case domain.OutcomeBlockedBudget:
		m.budgetBlocks.Add(1)
	case domain.OutcomeBlockedOpenIntents:
		m.openBlocks.Add(1)
	case domain.OutcomeBlockedCooldown:
		m.cooldownBlocks.Add(1)
	case domain.OutcomeEnqueued:
		m.emitted.Add(1)
	case domain.OutcomeDropped:
		m.dropped.Add(1)
	}
}

// RecordLatency adds one tick-to-decision duration to the running mean.
func (m *Metrics) RecordLatency(d time.Duration) {
	m.latencySumNs.Add(int64(d))
	m.latencyCount.Add(1)
}

// RecordDecodeError records a tick the source could not decode.
func (m *Metrics) RecordDecodeError() {
	m.decodeErrors.Add(1)
}

// RecordFeedDrop records a tick lost because the feed buffer was full.
func (m *Metrics) RecordFeedDrop() {
	m.feedDropped.Add(1)
}

// RecordReconnect records a feed reconnection attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	Ticks              uint64    `json:"ticks"`
	DecodeErrors       uint64    `json:"decode_errors"`
	SymbolRejects      uint64    `json:"symbol_rejects"`
	UndefinedReturns   uint64    `json:"undefined_returns"`
	NoTrigger          uint64    `json:"no_trigger"`
	Triggers           uint64    `json:"triggers"`
	BlockedBuyDisabled uint64    `json:"blocked_buy_disabled"`
	BlockedBudget      uint64    `json:"blocked_budget"`
	BlockedOpenIntents uint64    `json:"blocked_open_intents"`
	BlockedCooldown    uint64    `json:"blocked_cooldown"`
	Emitted            uint64    `json:"emitted_intents"`
	Dropped            uint64    `json:"dropped_intents"`
	AvgLatencyNs       int64     `json:"avg_latency_ns"`
	FeedDropped        uint64    `json:"feed_dropped"`
	Reconnects         uint64    `json:"reconnects"`
	ActiveConnections  int32     `json:"active_connections"`
	Timestamp          time.Time `json:"timestamp"`
}

// GateBlocks is buy-disabled + budget + open-intent rejections.
func (s MetricsSnapshot) GateBlocks() uint64 {
	return s.BlockedBuyDisabled + s.BlockedBudget + s.BlockedOpenIntents
}

// Snapshot returns current metrics as a snapshot. Outcome counters are read
// before the trigger total so emitted+dropped+blocks never exceeds triggers.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	s := MetricsSnapshot{
		Emitted:            m.emitted.Load(),
		Dropped:            m.dropped.Load(),
		BlockedBuyDisabled: m.buyDisabled.Load(),
		BlockedBudget:      m.budgetBlocks.Load(),
		BlockedOpenIntents: m.openBlocks.Load(),
		BlockedCooldown:    m.cooldownBlocks.Load(),
		NoTrigger:          m.noTrigger.Load(),
		UndefinedReturns:   m.undefined.Load(),
		SymbolRejects:      m.symbolRejects.Load(),
		DecodeErrors:       m.decodeErrors.Load(),
		AvgLatencyNs:       avgLatency,
		FeedDropped:        m.feedDropped.Load(),
		Reconnects:         m.reconnects.Load(),
		ActiveConnections:  m.activeConnections.Load(),
		Timestamp:          time.Now(),
	}
	s.Triggers = m.triggers.Load()
	s.Ticks = m.ticks.Load()
	return s
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	*m = Metrics{}
}
