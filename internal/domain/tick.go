package domain

import "altbot/pkg/quant"

// RawTick is one trade event as produced by a tick source.
// It is passed by value and never retained by the hot path.
type RawTick struct {
	SymbolID uint32         `json:"s"`
	Price    quant.PriceE8  `json:"p"`
	Ts       quant.TsMillis `json:"t"`
}

// NewRawTick creates a new raw tick
func NewRawTick(symbolID uint32, price quant.PriceE8, ts quant.TsMillis) RawTick {
	return RawTick{SymbolID: symbolID, Price: price, Ts: ts}
}
