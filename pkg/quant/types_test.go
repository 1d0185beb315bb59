package quant

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceE8(t *testing.T) {
	tests := []struct {
		input    string
		expected PriceE8
	}{
		{"1.23", 123_000_000},
		{"0.00000001", 1},
		{"100", 10_000_000_000},
		{"106.", 10_600_000_000},
		{".5", 50_000_000},
		{"1.123456789", 112_345_678},
	}

	for _, tt := range tests {
		got, err := ParsePriceE8(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.expected, got, tt.input)
	}
}

func TestParsePriceE8_Invalid(t *testing.T) {
	for _, s := range []string{"", ".", "-1", "1.2.3", "abc", "1e5", "999999999999999999999"} {
		_, err := ParsePriceE8(s)
		assert.ErrorIs(t, err, ErrInvalidPrice, s)
	}
}

func TestPriceE8_String(t *testing.T) {
	assert.Equal(t, "1.23000000", PriceE8(123_000_000).String())
	assert.Equal(t, "106.00000000", FromUnits(106).String())
}

func TestReturn(t *testing.T) {
	t.Run("six percent rise", func(t *testing.T) {
		r, ok := Return(FromUnits(100), FromUnits(106))
		require.True(t, ok)
		assert.Equal(t, ReturnE8(6_000_000), r)
	})

	t.Run("drop is negative and truncated toward zero", func(t *testing.T) {
		r, ok := Return(FromUnits(3), FromUnits(2))
		require.True(t, ok)
		assert.Equal(t, ReturnE8(-33_333_333), r)
	})

	t.Run("flat", func(t *testing.T) {
		r, ok := Return(FromUnits(7), FromUnits(7))
		require.True(t, ok)
		assert.Zero(t, r)
	})

	t.Run("zero oldest is undefined", func(t *testing.T) {
		_, ok := Return(0, FromUnits(1))
		assert.False(t, ok)
	})

	t.Run("large prices stay exact", func(t *testing.T) {
		r, ok := Return(FromUnits(60_000), FromUnits(63_000))
		require.True(t, ok)
		assert.Equal(t, ReturnE8(5_000_000), r)
	})
}

func TestPercentConversions(t *testing.T) {
	r := PercentToReturn(decimal.RequireFromString("5.0"))
	assert.Equal(t, ReturnE8(5_000_000), r)
	assert.True(t, r.Percent().Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "5.0000%", r.String())
}
