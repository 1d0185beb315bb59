package domain

import "altbot/pkg/quant"

// Side of an order intent. The hot path only ever emits Buy.
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderIntent is a gated decision to buy, handed to the execution stage.
// All monetary values are fixed-point integers.
type OrderIntent struct {
	ID       uint64         `json:"id"`
	SymbolID uint32         `json:"symbol_id"`
	Side     Side           `json:"side"`
	Price    quant.PriceE8  `json:"price"`
	Ts       quant.TsMillis `json:"ts"`
}

// EventKind is the execution stage feedback type.
type EventKind uint8

const (
	EventSubmitted EventKind = iota + 1
	EventAck
	EventFill
)

func (k EventKind) String() string {
	switch k {
	case EventSubmitted:
		return "SUBMITTED"
	case EventAck:
		return "ACK"
	case EventFill:
		return "FILL"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the event closes the intent.
func (k EventKind) IsTerminal() bool {
	return k == EventFill
}

// OrderEvent is emitted by the execution stage, strictly ordered per intent:
// Submitted, then Ack, then Fill.
type OrderEvent struct {
	Kind     EventKind      `json:"kind"`
	IntentID uint64         `json:"intent_id"`
	SymbolID uint32         `json:"symbol_id"`
	Price    quant.PriceE8  `json:"price"`
	Ts       quant.TsMillis `json:"ts"`
	TsMicros uint64         `json:"ts_us"` // simulated clock, microsecond resolution
}
