package domain

import "altbot/pkg/quant"

// Outcome classifies what the hot path did with one tick.
// Negative outcomes are expected and counted, never errors.
type Outcome uint8

const (
	OutcomeNoTrigger Outcome = iota
	OutcomeUndefined
	OutcomeSymbolRejected
	OutcomeBlockedBuyDisabled
	OutcomeBlockedBudget
	OutcomeBlockedOpenIntents
	OutcomeBlockedCooldown
	OutcomeEnqueued
	OutcomeDropped
)

var outcomeNames = [...]string{
	OutcomeNoTrigger:          "no_trigger",
	OutcomeUndefined:          "undefined",
	OutcomeSymbolRejected:     "symbol_rejected",
	OutcomeBlockedBuyDisabled: "blocked_buy_disabled",
	OutcomeBlockedBudget:      "blocked_budget",
	OutcomeBlockedOpenIntents: "blocked_open_intents",
	OutcomeBlockedCooldown:    "blocked_cooldown",
	OutcomeEnqueued:           "enqueued",
	OutcomeDropped:            "dropped",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Triggered reports whether the trigger condition was met for this tick,
// regardless of what the gates did with it.
func (o Outcome) Triggered() bool {
	return o >= OutcomeBlockedBuyDisabled
}

// GateBlocked reports whether a risk gate suppressed the trigger.
func (o Outcome) GateBlocked() bool {
	return o >= OutcomeBlockedBuyDisabled && o <= OutcomeBlockedCooldown
}

// Decision is the record produced for every processed tick.
type Decision struct {
	SymbolID uint32
	Price    quant.PriceE8
	Ts       quant.TsMillis
	Return   quant.ReturnE8
	Defined  bool
	Outcome  Outcome
	IntentID uint64 // set when Outcome is OutcomeEnqueued
}
