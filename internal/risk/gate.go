// Package risk holds the shared gating state consulted by the hot path and
// mutated by external risk control. Every field is an independent atomic.
package risk

import (
	"fmt"
	"sync/atomic"
	"time"

	"altbot/internal/domain"
	"altbot/pkg/quant"
)

// Verdict is the gate outcome for one trigger.
type Verdict uint8

const (
	Accepted Verdict = iota
	BlockedBuyDisabled
	BlockedBudget
	BlockedOpenIntents
	BlockedCooldown
	BlockedSymbol
)

// Outcome maps a rejection onto the decision outcome it is counted as.
func (v Verdict) Outcome() domain.Outcome {
	switch v {
	case BlockedBuyDisabled:
		return domain.OutcomeBlockedBuyDisabled
	case BlockedBudget:
		return domain.OutcomeBlockedBudget
	case BlockedOpenIntents:
		return domain.OutcomeBlockedOpenIntents
	case BlockedCooldown:
		return domain.OutcomeBlockedCooldown
	case BlockedSymbol:
		return domain.OutcomeSymbolRejected
	default:
		return domain.OutcomeEnqueued
	}
}

func (v Verdict) String() string {
	if v == Accepted {
		return "accepted"
	}
	return v.Outcome().String()
}

// never marks a symbol that has not had an accepted trigger yet.
const never int64 = -1

// Config seeds a Gate.
type Config struct {
	MaxSymbols     int
	InitialBudget  int64
	MaxOpenIntents int64
	Cooldown       time.Duration
	BuyEnabled     bool
}

// DefaultConfig: 500ms cooldown, 10 open intents, buying enabled.
func DefaultConfig(maxSymbols int, budget int64) Config {
	return Config{
		MaxSymbols:     maxSymbols,
		InitialBudget:  budget,
		MaxOpenIntents: 10,
		Cooldown:       500 * time.Millisecond,
		BuyEnabled:     true,
	}
}

// Gate is constructed once per run and passed to the hot path and to any
// external updater. No method blocks.
type Gate struct {
	buyEnabled  atomic.Bool
	budget      atomic.Int64
	openIntents atomic.Int64
	maxOpen     atomic.Int64
	cooldownMs  int64

	// last accepted trigger timestamp per symbol, only ever increases
	cooldowns []atomic.Int64

	replenished atomic.Int64
}

// New pre-allocates the cooldown table for every symbol id below MaxSymbols.
func New(cfg Config) (*Gate, error) {
	if cfg.MaxSymbols <= 0 {
		return nil, fmt.Errorf("risk: max symbols must be positive, got %d", cfg.MaxSymbols)
	}
	if cfg.InitialBudget < 0 {
		return nil, fmt.Errorf("risk: initial budget must not be negative, got %d", cfg.InitialBudget)
	}
	if cfg.MaxOpenIntents < 0 {
		return nil, fmt.Errorf("risk: max open intents must not be negative, got %d", cfg.MaxOpenIntents)
	}
	if cfg.Cooldown < 0 {
		return nil, fmt.Errorf("risk: cooldown must not be negative, got %s", cfg.Cooldown)
	}

	g := &Gate{
		cooldownMs: cfg.Cooldown.Milliseconds(),
		cooldowns:  make([]atomic.Int64, cfg.MaxSymbols),
	}
	for i := range g.cooldowns {
		g.cooldowns[i].Store(never)
	}
	g.buyEnabled.Store(cfg.BuyEnabled)
	g.budget.Store(cfg.InitialBudget)
	g.maxOpen.Store(cfg.MaxOpenIntents)
	return g, nil
}

// Check runs buy_enabled → budget → max_open_intents → cooldown and stops at the
// first failure. On success the cooldown has been set to ts and one unit of budget
// has been charged. Open intents are tracked separately around the enqueue.
func (g *Gate) Check(symbol uint32, ts quant.TsMillis) Verdict {
	if int(symbol) >= len(g.cooldowns) {
		return BlockedSymbol
	}
	if !g.buyEnabled.Load() {
		return BlockedBuyDisabled
	}
	if g.budget.Load() <= 0 {
		return BlockedBudget
	}
	if g.openIntents.Load() >= g.maxOpen.Load() {
		return BlockedOpenIntents
	}
	if !g.claimCooldown(symbol, int64(ts)) {
		return BlockedCooldown
	}
	if !g.chargeBudget() {
		// Only reachable if budget is drained concurrently; the cooldown stays claimed.
		return BlockedBudget
	}
	return Accepted
}

// claimCooldown is the single compare-and-update on the symbol's cooldown slot.
func (g *Gate) claimCooldown(symbol uint32, now int64) bool {
	slot := &g.cooldowns[symbol]
	for {
		last := slot.Load()
		if last != never && now-last < g.cooldownMs {
			return false
		}
		if slot.CompareAndSwap(last, now) {
			return true
		}
	}
}

// chargeBudget decrements by one unless the pre-decrement value is ≤ 0.
func (g *Gate) chargeBudget() bool {
	for {
		b := g.budget.Load()
		if b <= 0 {
			return false
		}
		if g.budget.CompareAndSwap(b, b-1) {
			return true
		}
	}
}

// IntentEnqueued records a new open intent. The hot path calls it before the push
// so a Fill can never be observed first, and undoes it with CancelIntent on a drop.
func (g *Gate) IntentEnqueued() {
	g.openIntents.Add(1)
}

// OpenIntentReleased is called when a terminal event (Fill) is observed.
func (g *Gate) OpenIntentReleased() {
	g.decOpen()
}

// CancelIntent releases an open intent by explicit cancellation.
// It reports false when there was nothing open to cancel.
func (g *Gate) CancelIntent() bool {
	return g.decOpen()
}

func (g *Gate) decOpen() bool {
	for {
		n := g.openIntents.Load()
		if n <= 0 {
			return false
		}
		if g.openIntents.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// SetBuyEnabled toggles the global buy flag.
func (g *Gate) SetBuyEnabled(enabled bool) {
	g.buyEnabled.Store(enabled)
}

// Replenish adds n units of budget. Non-positive n is ignored.
func (g *Gate) Replenish(n int64) {
	if n <= 0 {
		return
	}
	g.budget.Add(n)
	g.replenished.Add(n)
}

// SetMaxOpenIntents changes the open-intent ceiling.
func (g *Gate) SetMaxOpenIntents(n int64) error {
	if n < 0 {
		return fmt.Errorf("risk: max open intents must not be negative, got %d", n)
	}
	g.maxOpen.Store(n)
	return nil
}

// LastAccepted returns the symbol's cooldown timestamp, false if none yet.
func (g *Gate) LastAccepted(symbol uint32) (quant.TsMillis, bool) {
	if int(symbol) >= len(g.cooldowns) {
		return 0, false
	}
	v := g.cooldowns[symbol].Load()
	if v == never {
		return 0, false
	}
	return quant.TsMillis(v), true
}

// State is a point-in-time read of the gate. Fields are read independently.
type State struct {
	BuyEnabled     bool  `json:"buy_enabled"`
	Budget         int64 `json:"budget_remaining"`
	Replenished    int64 `json:"budget_replenished"`
	OpenIntents    int64 `json:"open_intents"`
	MaxOpenIntents int64 `json:"max_open_intents"`
	CooldownMs     int64 `json:"cooldown_ms"`
}

// State returns the current gate state.
func (g *Gate) State() State {
	return State{
		BuyEnabled:     g.buyEnabled.Load(),
		Budget:         g.budget.Load(),
		Replenished:    g.replenished.Load(),
		OpenIntents:    g.openIntents.Load(),
		MaxOpenIntents: g.maxOpen.Load(),
		CooldownMs:     g.cooldownMs,
	}
}
