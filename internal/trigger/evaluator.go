// Package trigger decides whether a symbol's trailing return crossed the buy threshold.
package trigger

import (
	"altbot/internal/window"
	"altbot/pkg/quant"
)

// DefaultThreshold is 5%.
const DefaultThreshold quant.ReturnE8 = 5_000_000

// Trigger is the evaluation record for one tick. It carries no side effects.
type Trigger struct {
	SymbolID uint32
	Price    quant.PriceE8
	Ts       quant.TsMillis
	Return   quant.ReturnE8
	Defined  bool
	Fired    bool
}

// Evaluator is a pure function of a window view and its settings.
type Evaluator struct {
	Threshold quant.ReturnE8
	HorizonMs uint64
}

// New returns an evaluator for the given threshold and horizon.
func New(threshold quant.ReturnE8, horizonMs uint64) Evaluator {
	return Evaluator{Threshold: threshold, HorizonMs: horizonMs}
}

// Evaluate computes the trailing return of v as of ts and fires iff it is defined
// and at or above the threshold.
func (e Evaluator) Evaluate(symbol uint32, v window.View, price quant.PriceE8, ts quant.TsMillis) Trigger {
	ret, ok := window.TrailingReturn(v, ts, e.HorizonMs)
	return Trigger{
		SymbolID: symbol,
		Price:    price,
		Ts:       ts,
		Return:   ret,
		Defined:  ok,
		Fired:    ok && ret >= e.Threshold,
	}
}

// EvaluateSnapshot is the reader-side variant over a published snapshot.
// The caller keeps the snapshot acquired for the duration of the call.
func (e Evaluator) EvaluateSnapshot(s *window.Snapshot, ts quant.TsMillis) Trigger {
	v := s.View()
	var price quant.PriceE8
	if v.Len() > 0 {
		price = v.Latest().Price
	}
	return e.Evaluate(s.SymbolID(), v, price, ts)
}
