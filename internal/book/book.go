// Package book implements the per-symbol limit order book: two
// interchangeable representations of the buy/sell half-books, and the
// price-time matching algorithm shared by both.
package book

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Side is the side of the book an order rests on or trades against.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Fill records one trade leg from the perspective of a single order: the
// counterparty that was matched against and the quantity exchanged.
type Fill struct {
	CounterpartyOrderID uint64
	Quantity            int64
}

// Order is a resting or incoming limit order. Once handed to a Book via
// Process, an Order's pointer is owned by that Book: callers must not
// mutate it further. Process, TopBuy and TopSell return only plain
// values (see Level and Fill); the one method that hands pointers back
// out is the diagnostic Fulfilled snapshot of archived orders.
type Order struct {
	ID              uint64
	Symbol          string
	Side            Side
	Price           decimal.Decimal
	Quantity        int64
	Timestamp       int64
	MatchingOrders  []Fill
}

// Filled reports whether the order has no quantity left to trade.
func (o *Order) Filled() bool {
	return o.Quantity <= 0
}

var (
	// ErrInvalidQuantity is returned for orders with non-positive quantity.
	ErrInvalidQuantity = errors.New("book: quantity must be positive")
	// ErrInvalidPrice is returned for orders with a non-positive price.
	ErrInvalidPrice = errors.New("book: price must be positive")
)

// Validate checks the invariants an Order must satisfy before it is
// admitted to a book: positive quantity and a positive, finite price.
// decimal.Decimal has no NaN/Inf representation, so "finite" reduces to
// "not the zero value produced by a failed parse", which callers avoid
// by constructing prices with decimal.NewFromFloat/decimal.NewFromString
// and checking their own errors first.
func (o *Order) Validate() error {
	if o.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if o.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Level is one aggregated price level as reported by TopBuy/TopSell:
// the price and the sum of resting quantity across every order at it.
type Level struct {
	Price    decimal.Decimal
	Quantity int64
}

// Book is the contract both order-book representations satisfy. A Book
// is owned by exactly one symbol and must serialize Process against
// TopBuy/TopSell/Fulfilled internally.
type Book interface {
	// Symbol returns the instrument this book was created for.
	Symbol() string

	// Process admits order, matches it against the opposite side per
	// price-time priority, and rests any remaining quantity on its own
	// side. It returns the fills the incoming order participated in, in
	// the order they occurred. order is not returned to the caller: it
	// either rests inside the book or is archived to the fulfilled list.
	Process(order *Order) []Fill

	// TopBuy returns up to n buy-side price levels, best (highest price)
	// first, aggregating resting quantity within each price level. If
	// fewer than n distinct price levels exist, it returns all of them.
	TopBuy(n int) []Level

	// TopSell is the sell-side symmetric counterpart of TopBuy: lowest
	// price first.
	TopSell(n int) []Level
}

// side is the internal, per-half-book contract the matching algorithm in
// matcher.go operates against. Both the Heap and Table representations
// implement it once for their buy half and once for their sell half.
type side interface {
	Best() *Order
	PopBest() *Order
	Insert(o *Order)
	Len() int
	TopN(n int) []Level
}

// crosses reports whether resting is an acceptable counterparty for
// incoming under §4.3's cross test: a buy crosses any ask priced at or
// below its limit, a sell crosses any bid priced at or above its limit.
func crosses(incoming *Order, resting *Order) bool {
	if incoming.Side == Buy {
		return !resting.Price.GreaterThan(incoming.Price)
	}
	return !resting.Price.LessThan(incoming.Price)
}
