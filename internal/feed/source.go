// Package feed provides interchangeable tick sources for the hot thread.
package feed

import (
	"io"

	"altbot/internal/domain"
)

// Source yields ticks one at a time. io.EOF ends the stream; any other error is
// a decode error for that call only, and the caller decides to skip or halt.
type Source interface {
	DecodeNext() (domain.RawTick, error)
}

// Slice replays a fixed set of ticks.
type Slice struct {
	ticks []domain.RawTick
	pos   int
}

// NewSlice returns a source over ticks. The slice is not copied.
func NewSlice(ticks []domain.RawTick) *Slice {
	return &Slice{ticks: ticks}
}

func (s *Slice) DecodeNext() (domain.RawTick, error) {
	if s.pos >= len(s.ticks) {
		return domain.RawTick{}, io.EOF
	}
	t := s.ticks[s.pos]
	s.pos++
	return t, nil
}

// Remaining returns how many ticks are left.
func (s *Slice) Remaining() int { return len(s.ticks) - s.pos }

// Collect drains src into a slice, stopping at io.EOF or the first other error.
func Collect(src Source, limit int) ([]domain.RawTick, error) {
	var out []domain.RawTick
	if limit > 0 {
		out = make([]domain.RawTick, 0, limit)
	}
	for limit <= 0 || len(out) < limit {
		t, err := src.DecodeNext()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
	return out, nil
}
