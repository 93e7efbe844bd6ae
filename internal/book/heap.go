package book

import (
	"container/heap"
	"sync"
)

// orderHeap is a container/heap.Interface over *Order, ordered by less.
// Popping it repeatedly yields orders in strict priority order — this is
// exactly what heapsort does, and TopN below relies on it to aggregate
// contiguous same-price runs correctly. Grounded in the teacher's
// MinPriceHeap/MaxPriceHeap in pkg/lx/orderbook.go, generalized from a
// heap of prices to a heap of orders so a single heap captures full
// price-time priority instead of needing a heap-of-prices plus a FIFO
// list per price.
type orderHeap struct {
	orders []*Order
	less   func(a, b *Order) bool
}

func (h *orderHeap) Len() int            { return len(h.orders) }
func (h *orderHeap) Less(i, j int) bool  { return h.less(h.orders[i], h.orders[j]) }
func (h *orderHeap) Swap(i, j int)       { h.orders[i], h.orders[j] = h.orders[j], h.orders[i] }
func (h *orderHeap) Push(x interface{})  { h.orders = append(h.orders, x.(*Order)) }
func (h *orderHeap) Pop() interface{} {
	old := h.orders
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.orders = old[:n-1]
	return item
}

// heapSide adapts an orderHeap to the internal side interface, adding
// the scratch-buffer TopN described in §4.4. TopN mutates the heap while
// it runs, so HeapBook calls it only under its write lock.
type heapSide struct {
	h orderHeap
}

func newHeapSide(less func(a, b *Order) bool) *heapSide {
	hs := &heapSide{h: orderHeap{less: less}}
	heap.Init(&hs.h)
	return hs
}

func (s *heapSide) Len() int { return s.h.Len() }

func (s *heapSide) Best() *Order {
	if s.h.Len() == 0 {
		return nil
	}
	return s.h.orders[0]
}

func (s *heapSide) PopBest() *Order {
	if s.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&s.h).(*Order)
}

func (s *heapSide) Insert(o *Order) {
	heap.Push(&s.h, o)
}

// TopN pops entries off the heap into a scratch buffer, aggregating by
// price as it goes, until it has produced n distinct price levels — or
// exhausted the heap — and then pushes every popped order back. Because
// popping a heap yields orders in full priority order, all orders
// sharing a price arrive consecutively, so a level is only "done" once
// the next popped order has a different price. This resolves §9's Open
// Question on Heap depth semantics in favor of aggregation, matching
// the Table variant instead of returning raw per-order entries.
func (s *heapSide) TopN(n int) []Level {
	if n <= 0 || s.h.Len() == 0 {
		return nil
	}

	var scratch []*Order
	var levels []Level

	for s.h.Len() > 0 {
		next := s.h.orders[0]
		sameLevel := len(levels) > 0 && levels[len(levels)-1].Price.Equal(next.Price)
		if len(levels) >= n && !sameLevel {
			break
		}

		o := heap.Pop(&s.h).(*Order)
		scratch = append(scratch, o)
		if sameLevel {
			levels[len(levels)-1].Quantity += o.Quantity
		} else {
			levels = append(levels, Level{Price: o.Price, Quantity: o.Quantity})
		}
	}

	for _, o := range scratch {
		heap.Push(&s.h, o)
	}

	return levels
}

// HeapBook is the heap-of-orders order book variant: each side is a
// binary heap keyed by a price-time comparator, per §4.4.
type HeapBook struct {
	symbol string
	mu     sync.RWMutex

	bids *heapSide
	asks *heapSide

	fulfilled []*Order
}

// NewHeapBook creates an empty Heap-variant book for symbol.
func NewHeapBook(symbol string) *HeapBook {
	return &HeapBook{
		symbol: symbol,
		bids:   newHeapSide(buyLess),
		asks:   newHeapSide(sellLess),
	}
}

func buyLess(a, b *Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.GreaterThan(b.Price)
	}
	return a.Timestamp < b.Timestamp
}

func sellLess(a, b *Order) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	return a.Timestamp < b.Timestamp
}

// Symbol implements Book.
func (b *HeapBook) Symbol() string { return b.symbol }

// Process implements Book.
func (b *HeapBook) Process(order *Order) []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()

	var opposite, own *heapSide
	if order.Side == Buy {
		opposite, own = b.asks, b.bids
	} else {
		opposite, own = b.bids, b.asks
	}

	fills, fulfilled := match(order, opposite)
	b.fulfilled = append(b.fulfilled, fulfilled...)

	if order.Quantity > 0 {
		own.Insert(order)
	}

	return fills
}

// TopBuy implements Book. It takes the write lock because TopN pops and
// re-pushes heap entries.
func (b *HeapBook) TopBuy(n int) []Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.TopN(n)
}

// TopSell implements Book. It takes the write lock because TopN pops and
// re-pushes heap entries.
func (b *HeapBook) TopSell(n int) []Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.asks.TopN(n)
}

// Fulfilled returns a snapshot of orders fully filled since the book was
// created, oldest first. Intended for tests and diagnostics, not for the
// hot path.
func (b *HeapBook) Fulfilled() []*Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Order, len(b.fulfilled))
	copy(out, b.fulfilled)
	return out
}
