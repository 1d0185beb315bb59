package latency

import "time"

// Stamp is the arrival time of a tick on the monotonic clock.
type Stamp = time.Time

// Recorder measures tick arrival → decision on the hot thread.
type Recorder struct {
	h *Histogram
}

// NewRecorder wraps h.
func NewRecorder(h *Histogram) *Recorder {
	return &Recorder{h: h}
}

// Start stamps an arrival.
func (r *Recorder) Start() Stamp { return time.Now() }

// Stop records the time elapsed since s and returns it.
func (r *Recorder) Stop(s Stamp) time.Duration {
	d := time.Since(s)
	r.h.Record(d)
	return d
}

// Histogram returns the underlying histogram.
func (r *Recorder) Histogram() *Histogram { return r.h }
