package feed

import (
	"context"
	"io"

	"altbot/internal/domain"

	"golang.org/x/time/rate"
)

// Paced replays an inner source at a fixed rate. Cancelling ctx ends the stream.
type Paced struct {
	ctx   context.Context
	inner Source
	lim   *rate.Limiter
}

// NewPaced limits inner to perSec ticks per second with a burst of one.
// perSec <= 0 disables pacing.
func NewPaced(ctx context.Context, inner Source, perSec int) *Paced {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSec > 0 {
		lim = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	return &Paced{ctx: ctx, inner: inner, lim: lim}
}

func (p *Paced) DecodeNext() (domain.RawTick, error) {
	if err := p.lim.Wait(p.ctx); err != nil {
		return domain.RawTick{}, io.EOF
	}
	return p.inner.DecodeNext()
}
