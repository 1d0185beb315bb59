package maintenance

import (
	"testing"

	"altbot/pkg/quant"

	"github.com/stretchr/testify/assert"
)

func TestMinuteRing_OlderMinuteNeverOverwritesNewer(t *testing.T) {
	var r minuteRing
	r.record(quant.FromUnits(200), 60*minuteMs)
	r.record(quant.FromUnits(100), 0) // same slot, older minute

	b := r.buckets[0]
	assert.Equal(t, uint64(60), b.minute)
	assert.Equal(t, quant.FromUnits(200), b.close)
}

func TestMinuteRing_LastPriceOfMinuteWins(t *testing.T) {
	var r minuteRing
	r.record(quant.FromUnits(100), 1_000)
	r.record(quant.FromUnits(120), 50_000)

	ret, ok := r.trailing(quant.FromUnits(132), 61_000, 15)
	assert.True(t, ok)
	assert.Equal(t, quant.ReturnE8(10_000_000), ret)
}

func TestMinuteRing_CurrentMinuteIsNotABase(t *testing.T) {
	var r minuteRing
	r.record(quant.FromUnits(100), 1_000)
	_, ok := r.trailing(quant.FromUnits(110), 2_000, 15)
	assert.False(t, ok)
}
