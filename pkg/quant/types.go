package quant

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"altbot/pkg/safe"

	"github.com/shopspring/decimal"
)

// PriceE8 represents price multiplied by 100,000,000 (10^8).
// E.g., 1.23 USDT = 123,000,000 PriceE8.
type PriceE8 uint64

// TsMillis represents Unix Milliseconds.
type TsMillis uint64

// ReturnE8 is a relative change multiplied by 10^8.
// 1.0 (100%) = 100,000,000; 5% = 5,000,000.
type ReturnE8 int64

const (
	PriceScale  = 100_000_000
	PriceDigits = 8
	ReturnScale = 100_000_000
)

var ErrInvalidPrice = errors.New("invalid fixed-point price")

// Decimal converts the price to a decimal for display at the boundary.
func (p PriceE8) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(p)), -PriceDigits)
}

func (p PriceE8) String() string {
	return p.Decimal().StringFixed(PriceDigits)
}

// FromUnits converts a whole-unit price to PriceE8. Panics on overflow.
func FromUnits(units uint64) PriceE8 {
	return PriceE8(safe.MulU64(units, PriceScale))
}

// ParsePriceE8 parses a non-negative decimal string into PriceE8 without float64.
// Digits beyond the 8th fractional place are truncated.
func ParsePriceE8(s string) (PriceE8, error) {
	if s == "" {
		return 0, ErrInvalidPrice
	}

	var intPart, fracPart uint64
	fracDigits := 0
	seenDot := false
	seenDigit := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '.':
			if seenDot {
				return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
			}
			seenDot = true
		case c >= '0' && c <= '9':
			seenDigit = true
			d := uint64(c - '0')
			if seenDot {
				if fracDigits == PriceDigits {
					continue
				}
				fracPart = fracPart*10 + d
				fracDigits++
				continue
			}
			if intPart > (math.MaxUint64-d)/10 {
				return 0, fmt.Errorf("%w: %q overflows", ErrInvalidPrice, s)
			}
			intPart = intPart*10 + d
		default:
			return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
		}
	}
	if !seenDigit {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}

	for ; fracDigits < PriceDigits; fracDigits++ {
		fracPart *= 10
	}

	if intPart > math.MaxUint64/PriceScale {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidPrice, s)
	}
	whole := intPart * PriceScale
	if whole > math.MaxUint64-fracPart {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidPrice, s)
	}
	return PriceE8(whole + fracPart), nil
}

// Return computes (latest - oldest) / oldest with a 128-bit intermediate.
// ok is false when oldest is zero. Results beyond the int64 range saturate.
func Return(oldest, latest PriceE8) (ReturnE8, bool) {
	if oldest == 0 {
		return 0, false
	}
	if latest >= oldest {
		q, ok := safe.MulDivU64(uint64(latest-oldest), ReturnScale, uint64(oldest))
		if !ok || q > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return ReturnE8(q), true
	}
	// A drop can be at most -100%, which always fits.
	q, _ := safe.MulDivU64(uint64(oldest-latest), ReturnScale, uint64(oldest))
	return -ReturnE8(q), true
}

// PercentToReturn converts a percent figure (5.0 = 5%) into ReturnE8.
func PercentToReturn(pct decimal.Decimal) ReturnE8 {
	return ReturnE8(pct.Shift(6).IntPart())
}

// Percent renders the return as a percent decimal (5,000,000 -> 5).
func (r ReturnE8) Percent() decimal.Decimal {
	return decimal.New(int64(r), -6)
}

func (r ReturnE8) String() string {
	return r.Percent().StringFixed(4) + "%"
}
