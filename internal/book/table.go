package book

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// innerKey uniquely identifies an order within a price level. The spec's
// reference keys the inner map by timestamp alone, which the Design
// Notes flag as unsafe: two orders at the same price sharing a
// client-supplied timestamp would silently collide. Folding OrderID into
// the key resolves that Open Question without changing the ordering
// semantics (ties still break on Timestamp; OrderID only disambiguates
// orders that tie on both price and timestamp, admission order for
// those is otherwise unspecified by the spec).
type innerKey struct {
	Timestamp int64
	OrderID   uint64
}

func lessInnerKey(a, b innerKey) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.OrderID < b.OrderID
}

// priceLevel is one outer entry: every resting order at a single price,
// indexed by innerKey and kept in ascending (Timestamp, OrderID) order
// so index 0 is always "the earliest order at this price".
type priceLevel struct {
	price    decimal.Decimal
	orders   map[innerKey]*Order
	sequence []innerKey
	quantity int64
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{price: price, orders: make(map[innerKey]*Order)}
}

func (l *priceLevel) insert(o *Order) {
	key := innerKey{Timestamp: o.Timestamp, OrderID: o.ID}
	if _, exists := l.orders[key]; !exists {
		pos := sort.Search(len(l.sequence), func(i int) bool { return !lessInnerKey(l.sequence[i], key) })
		l.sequence = append(l.sequence, innerKey{})
		copy(l.sequence[pos+1:], l.sequence[pos:])
		l.sequence[pos] = key
	}
	l.orders[key] = o
	l.quantity += o.Quantity
}

func (l *priceLevel) popFront() *Order {
	if len(l.sequence) == 0 {
		return nil
	}
	key := l.sequence[0]
	l.sequence = l.sequence[1:]
	o := l.orders[key]
	delete(l.orders, key)
	l.quantity -= o.Quantity
	return o
}

func (l *priceLevel) front() *Order {
	if len(l.sequence) == 0 {
		return nil
	}
	return l.orders[l.sequence[0]]
}

func (l *priceLevel) empty() bool { return len(l.sequence) == 0 }

// canonicalPriceKey normalizes a price into a fixed-precision string for
// use as a map key. decimal.Decimal values that are numerically Equal
// can differ in internal representation (coefficient/exponent), so using
// the Decimal itself as a map key risks splitting one logical price
// level into two. This mirrors the teacher's own
// fmt.Sprintf("%.8f", order.Price) normalization in
// pkg/lx/orderbook.go's OrderTree.addOrder/getBestOrder.
func canonicalPriceKey(price decimal.Decimal) string {
	return price.StringFixed(8)
}

// tableSide is the nested-map order book side of §4.2: an outer index
// ordered by price (kept as a sorted slice, inserted with sort.Search
// and removed from the front once a level empties, generalizing the sorted-slice insert idiom in the
// teacher's pkg/orderbook/orderbook_go.go GoOrderBook.insertBid/
// insertAsk from a slice of order IDs to a slice of price levels) over
// an inner priceLevel ordered by (timestamp, order id).
type tableSide struct {
	buy    bool
	prices []decimal.Decimal
	levels map[string]*priceLevel
}

func newTableSide(buy bool) *tableSide {
	return &tableSide{buy: buy, levels: make(map[string]*priceLevel)}
}

// better reports whether price a should sit ahead of price b in this
// side's outer ordering: descending for buy, ascending for sell.
func (s *tableSide) better(a, b decimal.Decimal) bool {
	if s.buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

func (s *tableSide) Len() int {
	n := 0
	for _, lvl := range s.levels {
		n += len(lvl.sequence)
	}
	return n
}

func (s *tableSide) Insert(o *Order) {
	key := canonicalPriceKey(o.Price)
	lvl, exists := s.levels[key]
	if !exists {
		lvl = newPriceLevel(o.Price)
		s.levels[key] = lvl
		pos := sort.Search(len(s.prices), func(i int) bool { return !s.better(s.prices[i], o.Price) })
		s.prices = append(s.prices, decimal.Decimal{})
		copy(s.prices[pos+1:], s.prices[pos:])
		s.prices[pos] = o.Price
	}
	lvl.insert(o)
}

func (s *tableSide) Best() *Order {
	if len(s.prices) == 0 {
		return nil
	}
	return s.levels[canonicalPriceKey(s.prices[0])].front()
}

func (s *tableSide) PopBest() *Order {
	if len(s.prices) == 0 {
		return nil
	}
	key := canonicalPriceKey(s.prices[0])
	lvl := s.levels[key]
	o := lvl.popFront()
	if lvl.empty() {
		delete(s.levels, key)
		s.prices = s.prices[1:]
	}
	return o
}

// TopN aggregates the first n outer price levels, summing the current
// resting quantity of every order at each included level, so it is
// O(orders at included levels).
func (s *tableSide) TopN(n int) []Level {
	if n <= 0 {
		return nil
	}
	if n > len(s.prices) {
		n = len(s.prices)
	}
	out := make([]Level, 0, n)
	for i := 0; i < n; i++ {
		lvl := s.levels[canonicalPriceKey(s.prices[i])]
		var quantity int64
		for _, key := range lvl.sequence {
			quantity += lvl.orders[key].Quantity
		}
		out = append(out, Level{Price: lvl.price, Quantity: quantity})
	}
	return out
}

// TableBook is the nested-map order book variant of §4.2.
type TableBook struct {
	symbol string
	mu     sync.RWMutex

	bids *tableSide
	asks *tableSide

	fulfilled []*Order
}

// NewTableBook creates an empty Table-variant book for symbol.
func NewTableBook(symbol string) *TableBook {
	return &TableBook{
		symbol: symbol,
		bids:   newTableSide(true),
		asks:   newTableSide(false),
	}
}

// Symbol implements Book.
func (b *TableBook) Symbol() string { return b.symbol }

// Process implements Book.
func (b *TableBook) Process(order *Order) []Fill {
	b.mu.Lock()
	defer b.mu.Unlock()

	var opposite, own *tableSide
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

// TopBuy implements Book.
func (b *TableBook) TopBuy(n int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.TopN(n)
}

// TopSell implements Book.
func (b *TableBook) TopSell(n int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.TopN(n)
}

// Fulfilled returns a snapshot of orders fully filled since the book was
// created, oldest first.
func (b *TableBook) Fulfilled() []*Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*Order, len(b.fulfilled))
	copy(out, b.fulfilled)
	return out
}
