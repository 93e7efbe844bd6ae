package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeapSideTopNFewerLevelsThanRequested(t *testing.T) {
	s := newHeapSide(buyLess)
	s.Insert(&Order{ID: 1, Price: price("100"), Quantity: 5, Timestamp: 1})
	s.Insert(&Order{ID: 2, Price: price("99"), Quantity: 3, Timestamp: 2})

	levels := s.TopN(10)
	assert.Equal(t, []Level{
		{Price: price("100"), Quantity: 5},
		{Price: price("99"), Quantity: 3},
	}, levels)

	// TopN must not have mutated the underlying heap.
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, uint64(1), s.Best().ID)
}

func TestHeapSideTopNAggregatesTiedPriceBeyondRequestedCount(t *testing.T) {
	s := newHeapSide(sellLess)
	s.Insert(&Order{ID: 1, Price: price("100"), Quantity: 3, Timestamp: 1})
	s.Insert(&Order{ID: 2, Price: price("100"), Quantity: 2, Timestamp: 2})
	s.Insert(&Order{ID: 3, Price: price("101"), Quantity: 4, Timestamp: 3})

	levels := s.TopN(1)
	assert.Equal(t, []Level{{Price: price("100"), Quantity: 5}}, levels)
	assert.Equal(t, 3, s.Len())
}

func TestHeapSideEmpty(t *testing.T) {
	s := newHeapSide(buyLess)
	assert.Nil(t, s.Best())
	assert.Nil(t, s.PopBest())
	assert.Nil(t, s.TopN(5))
}

func TestHeapBookRestsResidualOnOwnSide(t *testing.T) {
	b := NewHeapBook("X")
	b.Process(&Order{ID: 1, Symbol: "X", Side: Buy, Price: price("100"), Quantity: 5, Timestamp: 1})
	fulfilled := b.Fulfilled()
	assert.Empty(t, fulfilled)
	assert.Equal(t, []Level{{Price: price("100"), Quantity: 5}}, b.TopBuy(1))
}
