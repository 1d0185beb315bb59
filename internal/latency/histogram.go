// Package latency records tick-to-decision durations into an HDR histogram.
// Recording is O(1) and never allocates; percentiles are computed from a copy,
// off the hot path.
package latency

import (
	"math"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// DefaultMax is the largest trackable value; longer samples clamp to it.
const DefaultMax = 100 * time.Millisecond

// SignificantFigures is the value precision kept by the histogram.
const SignificantFigures = 3

// Histogram is owned by one goroutine: Record and Snapshot must not run
// concurrently. The hot thread records; the report snapshots after it returns.
type Histogram struct {
	h   *hdrhistogram.Histogram
	max int64

	count    uint64
	sum      uint64
	min      uint64
	maxSeen  uint64
	overflow uint64
}

// NewHistogram tracks [0, max] nanoseconds at three significant figures.
// A non-positive max uses DefaultMax.
func NewHistogram(max time.Duration) *Histogram {
	if max <= 0 {
		max = DefaultMax
	}
	return &Histogram{
		h:   hdrhistogram.New(1, int64(max), SignificantFigures),
		max: int64(max),
		min: math.MaxUint64,
	}
}

// Record adds one sample. Negative durations count as zero; values over max
// are recorded as max and counted in Overflow.
func (h *Histogram) Record(d time.Duration) {
	v := max(int64(d), 0)
	if v > h.max {
		v = h.max
		h.overflow++
	}
	// In range by construction, so RecordValue cannot fail.
	_ = h.h.RecordValue(v)

	u := uint64(v)
	h.count++
	h.sum += u
	h.min = min(h.min, u)
	h.maxSeen = max(h.maxSeen, u)
}

// Count returns the number of recorded samples.
func (h *Histogram) Count() uint64 { return h.count }

// Reset clears all samples.
func (h *Histogram) Reset() {
	h.h.Reset()
	h.count, h.sum, h.overflow, h.maxSeen = 0, 0, 0, 0
	h.min = math.MaxUint64
}

// Snapshot copies the histogram.
func (h *Histogram) Snapshot() Snapshot {
	c := hdrhistogram.New(1, h.max, SignificantFigures)
	c.Merge(h.h)
	s := Snapshot{
		h:        c,
		count:    h.count,
		sum:      h.sum,
		min:      h.min,
		max:      h.maxSeen,
		overflow: h.overflow,
	}
	if s.count == 0 {
		s.min = 0
	}
	return s
}

// Snapshot is an independent copy of a Histogram. Min, Max, Sum and Mean are
// exact; quantiles carry the histogram's precision.
type Snapshot struct {
	h        *hdrhistogram.Histogram
	count    uint64
	sum      uint64
	min      uint64
	max      uint64
	overflow uint64
}

func (s Snapshot) Count() uint64       { return s.count }
func (s Snapshot) Overflow() uint64    { return s.overflow }
func (s Snapshot) Min() time.Duration  { return time.Duration(s.min) }
func (s Snapshot) Max() time.Duration  { return time.Duration(s.max) }
func (s Snapshot) P50() time.Duration  { return s.Quantile(0.50) }
func (s Snapshot) P95() time.Duration  { return s.Quantile(0.95) }
func (s Snapshot) P99() time.Duration  { return s.Quantile(0.99) }
func (s Snapshot) P999() time.Duration { return s.Quantile(0.999) }
func (s Snapshot) Sum() time.Duration  { return time.Duration(s.sum) }

// Mean returns the arithmetic mean, 0 when empty.
func (s Snapshot) Mean() time.Duration {
	if s.count == 0 {
		return 0
	}
	return time.Duration(s.sum / s.count)
}

// Quantile returns the highest value equivalent to the q-th quantile,
// clamped to the observed range. q is clamped to [0, 1].
func (s Snapshot) Quantile(q float64) time.Duration {
	if s.count == 0 || s.h == nil {
		return 0
	}
	if q <= 0 {
		return time.Duration(s.min)
	}
	q = min(q, 1)
	v := uint64(max(s.h.ValueAtQuantile(q*100), 0))
	return time.Duration(max(min(v, s.max), s.min))
}

// Bucket is one non-empty histogram bucket.
type Bucket struct {
	Lo, Hi time.Duration
	Count  uint64
}

// Buckets returns the non-empty buckets in ascending order.
func (s Snapshot) Buckets() []Bucket {
	if s.h == nil {
		return nil
	}
	var out []Bucket
	for _, b := range s.h.Distribution() {
		if b.Count == 0 {
			continue
		}
		out = append(out, Bucket{Lo: time.Duration(b.From), Hi: time.Duration(b.To), Count: uint64(b.Count)})
	}
	return out
}

// Encode serializes the histogram in the compressed V2 HDR format, readable by
// any HdrHistogram implementation.
func (s Snapshot) Encode() ([]byte, error) {
	if s.h == nil {
		return nil, nil
	}
	return s.h.Encode(hdrhistogram.V2CompressedEncodingCookieBase)
}
