package maintenance

import (
	"sync"

	"altbot/pkg/quant"

	"github.com/google/btree"
)

// moverItem orders symbols by 1h return, highest first, ties by symbol id.
type moverItem struct {
	symbol uint32
	ret    quant.ReturnE8
}

func (m *moverItem) Less(than btree.Item) bool {
	o := than.(*moverItem)
	if m.ret != o.ret {
		return m.ret > o.ret
	}
	return m.symbol < o.symbol
}

// Mover is one entry of the movers ranking.
type Mover struct {
	SymbolID  uint32         `json:"symbol_id"`
	Return1h  quant.ReturnE8 `json:"return_1h_e8"`
	ReturnPct string         `json:"return_1h_pct"`
}

type moversIndex struct {
	mu    sync.RWMutex
	tree  *btree.BTree
	items map[uint32]*moverItem
}

func newMoversIndex() *moversIndex {
	return &moversIndex{
		tree:  btree.New(32),
		items: make(map[uint32]*moverItem),
	}
}

func (x *moversIndex) update(symbol uint32, ret quant.ReturnE8, defined bool) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.items[symbol]; ok {
		if defined && old.ret == ret {
			return
		}
		x.tree.Delete(old)
		delete(x.items, symbol)
	}
	if !defined {
		return
	}
	item := &moverItem{symbol: symbol, ret: ret}
	x.tree.ReplaceOrInsert(item)
	x.items[symbol] = item
}

func (x *moversIndex) top(n int) []Mover {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if n <= 0 {
		return nil
	}
	out := make([]Mover, 0, min(n, x.tree.Len()))
	x.tree.Ascend(func(i btree.Item) bool {
		it := i.(*moverItem)
		out = append(out, Mover{SymbolID: it.symbol, Return1h: it.ret, ReturnPct: it.ret.String()})
		return len(out) < n
	})
	return out
}
