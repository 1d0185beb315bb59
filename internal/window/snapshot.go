package window

import (
	"sync/atomic"

	"altbot/pkg/quant"
)

// Snapshot is an immutable, published copy of one symbol's window.
// Readers obtain it with Window.Acquire and must call Release when done;
// the writer never reuses a buffer while any reader holds it.
type Snapshot struct {
	refs    atomic.Int32
	symbol  uint32
	version uint64
	newest  quant.TsMillis
	samples []Sample
}

// View returns an ordered view over the snapshot's samples.
func (s *Snapshot) View() View {
	return View{buf: s.samples, count: len(s.samples)}
}

// Samples returns the samples oldest→newest. The slice must not be modified.
func (s *Snapshot) Samples() []Sample { return s.samples }

// Version increases by one with every publication for the symbol; 0 is the empty snapshot.
func (s *Snapshot) Version() uint64 { return s.version }

// SymbolID returns the symbol the snapshot belongs to.
func (s *Snapshot) SymbolID() uint32 { return s.symbol }

// Newest returns the newest timestamp the writer had seen when publishing.
func (s *Snapshot) Newest() quant.TsMillis { return s.newest }

// Release drops the reader's reference.
func (s *Snapshot) Release() {
	if s.refs.Add(-1) < 0 {
		panic("WINDOW_SNAPSHOT_RELEASED_TWICE")
	}
}

func (s *Snapshot) held() bool { return s.refs.Load() != 0 }
