package window

import "altbot/pkg/quant"

// Sample is one buffered price observation.
type Sample struct {
	Price quant.PriceE8  `json:"price"`
	Ts    quant.TsMillis `json:"ts"`
}

// View is a read-only, ordered (oldest→newest) view over a circular buffer.
// It is a value type; taking one never allocates.
type View struct {
	buf   []Sample
	head  int
	count int
}

// Len returns the number of samples in the view.
func (v View) Len() int { return v.count }

// At returns the i-th sample, 0 being the oldest.
func (v View) At(i int) Sample {
	idx := v.head + i
	if idx >= len(v.buf) {
		idx -= len(v.buf)
	}
	return v.buf[idx]
}

// Oldest returns the front of the window. Callers check Len first.
func (v View) Oldest() Sample { return v.At(0) }

// Latest returns the most recently inserted sample. Callers check Len first.
func (v View) Latest() Sample { return v.At(v.count - 1) }

// ring is the writer-owned circular buffer of one symbol.
// Eviction is driven by the newest timestamp seen, never by the wall clock.
type ring struct {
	buf    []Sample
	head   int // oldest
	count  int
	newest quant.TsMillis
	seen   bool
}

func newRing(capacity int) ring {
	return ring{buf: make([]Sample, capacity)}
}

// insert appends in arrival order and reports whether the oldest sample had to be
// overwritten because the buffer was full.
func (r *ring) insert(s Sample, horizonMs uint64) (overwrote bool) {
	if !r.seen || s.Ts > r.newest {
		r.newest = s.Ts
		r.seen = true
	}

	n := len(r.buf)
	if r.count == n {
		r.head++
		if r.head == n {
			r.head = 0
		}
		r.count--
		overwrote = true
	}

	idx := r.head + r.count
	if idx >= n {
		idx -= n
	}
	r.buf[idx] = s
	r.count++

	r.evict(horizonMs)
	return overwrote
}

func (r *ring) evict(horizonMs uint64) {
	if uint64(r.newest) < horizonMs {
		return
	}
	cutoff := r.newest - quant.TsMillis(horizonMs)
	n := len(r.buf)
	for r.count > 0 && r.buf[r.head].Ts < cutoff {
		r.head++
		if r.head == n {
			r.head = 0
		}
		r.count--
	}
}

func (r *ring) view() View {
	return View{buf: r.buf, head: r.head, count: r.count}
}

// copyTo writes the live samples, oldest first, into dst and returns the count.
// dst must have capacity for the whole ring.
func (r *ring) copyTo(dst []Sample) int {
	n := len(r.buf)
	first := r.count
	if r.head+first > n {
		first = n - r.head
	}
	copy(dst[:first], r.buf[r.head:r.head+first])
	copy(dst[first:r.count], r.buf[:r.count-first])
	return r.count
}

// TrailingReturn computes (latest - oldest) / oldest over the view as of now.
// It is undefined with fewer than two samples, a zero oldest price, or when the
// oldest sample already fell outside the horizon (a stale view).
func TrailingReturn(v View, now quant.TsMillis, horizonMs uint64) (quant.ReturnE8, bool) {
	if v.count < 2 {
		return 0, false
	}
	oldest := v.Oldest()
	if uint64(now) >= horizonMs && oldest.Ts < now-quant.TsMillis(horizonMs) {
		return 0, false
	}
	return quant.Return(oldest.Price, v.Latest().Price)
}
