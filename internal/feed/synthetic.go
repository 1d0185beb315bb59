package feed

import (
	"io"

	"altbot/internal/domain"
	"altbot/pkg/quant"
)

// Synthetic generator constants. The LCG and price model are fixed so every
// benchmark run sees the same stream.
const (
	SyntheticSeed   uint64 = 12345
	SyntheticBaseTs uint64 = 1_700_000_000_000

	lcgMul = 1103515245
	lcgInc = 12345
)

// Synthetic generates a reproducible tick stream across numSymbols symbols.
// Each symbol has a base price of 10 + (i*13 mod 990) units; every tick varies
// it by -2.00%..+7.99% and advances the timestamp by 1ms.
type Synthetic struct {
	numSymbols uint64
	numTicks   int
	emitted    int
	rng        uint64
	base       []quant.PriceE8
}

// NewSynthetic creates a generator. numTicks <= 0 means unbounded.
func NewSynthetic(numSymbols uint32, numTicks int) *Synthetic {
	if numSymbols == 0 {
		numSymbols = 1
	}
	base := make([]quant.PriceE8, numSymbols)
	for i := range base {
		base[i] = quant.FromUnits(10 + (uint64(i)*13)%990)
	}
	return &Synthetic{
		numSymbols: uint64(numSymbols),
		numTicks:   numTicks,
		rng:        SyntheticSeed,
		base:       base,
	}
}

func (s *Synthetic) next() uint64 {
	s.rng = s.rng*lcgMul + lcgInc
	return s.rng
}

// DecodeNext never allocates.
func (s *Synthetic) DecodeNext() (domain.RawTick, error) {
	if s.numTicks > 0 && s.emitted >= s.numTicks {
		return domain.RawTick{}, io.EOF
	}
	symbol := s.next() % s.numSymbols
	// hundredths of a percent in [-200, 799]
	bp := int64(s.next()%1000) - 200
	price := uint64(s.base[symbol]) * uint64(10_000+bp) / 10_000

	t := domain.RawTick{
		SymbolID: uint32(symbol),
		Price:    quant.PriceE8(price),
		Ts:       quant.TsMillis(SyntheticBaseTs + uint64(s.emitted)),
	}
	s.emitted++
	return t, nil
}

// BasePrice returns the generator's base price for a symbol.
func (s *Synthetic) BasePrice(symbol uint32) quant.PriceE8 { return s.base[symbol] }
