package safe

import "math/bits"

// MulU64 multiplies two fixed-point magnitudes and panics if the product does not fit.
func MulU64(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		panic("CORE_SAFE_MUL_U64_OVERFLOW")
	}
	return lo
}

// MulDivU64 returns a*b/c using a 128-bit intermediate, truncating toward zero.
// ok is false when c is zero or the quotient does not fit in 64 bits.
func MulDivU64(a, b, c uint64) (q uint64, ok bool) {
	if c == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, false
	}
	q, _ = bits.Div64(hi, lo, c)
	return q, true
}
