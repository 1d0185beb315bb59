package maintenance

import "altbot/pkg/quant"

const (
	minuteMs      = 60_000
	bucketMinutes = 60
)

// minuteBucket holds the last price seen within one wall minute.
type minuteBucket struct {
	minute uint64
	close  quant.PriceE8
	valid  bool
}

// minuteRing keeps an hour of per-minute closes for one symbol.
type minuteRing struct {
	buckets [bucketMinutes]minuteBucket
}

func (r *minuteRing) record(price quant.PriceE8, ts quant.TsMillis) {
	m := uint64(ts) / minuteMs
	b := &r.buckets[m%bucketMinutes]
	if b.valid && b.minute > m {
		return // an older minute never overwrites a newer one
	}
	*b = minuteBucket{minute: m, close: price, valid: true}
}

// trailing returns latest against the oldest close in [now-minutes, now-1].
func (r *minuteRing) trailing(latest quant.PriceE8, ts quant.TsMillis, minutes uint64) (quant.ReturnE8, bool) {
	now := uint64(ts) / minuteMs
	if minutes >= bucketMinutes {
		minutes = bucketMinutes - 1
	}
	start := uint64(0)
	if now > minutes {
		start = now - minutes
	}
	for m := start; m < now; m++ {
		b := r.buckets[m%bucketMinutes]
		if b.valid && b.minute == m {
			return quant.Return(b.close, latest)
		}
	}
	return 0, false
}
