package dispatch

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lxbook/matchcore/internal/book"
)

func mustPrice(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestEngineRejectsAddOrderBeforeSetUp(t *testing.T) {
	e := New(2)
	defer e.Shutdown()

	_, err := e.AddOrder(OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 1, Timestamp: 1})
	assert.ErrorIs(t, err, ErrNotSetUp)
}

func TestEngineRejectsUnknownSymbol(t *testing.T) {
	e := New(2)
	defer e.Shutdown()
	require.NoError(t, e.SetUp(VariantTable, []string{"X"}))

	_, err := e.AddOrder(OrderSpec{Symbol: "Y", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 1, Timestamp: 1})
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestEngineRejectsInvalidInputWithoutTouchingCounter(t *testing.T) {
	e := New(2)
	defer e.Shutdown()
	require.NoError(t, e.SetUp(VariantTable, []string{"X"}))

	_, err := e.AddOrder(OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 0, Timestamp: 1})
	assert.ErrorIs(t, err, book.ErrInvalidQuantity)

	_, err = e.AddOrder(OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "-1"), Quantity: 1, Timestamp: 1})
	assert.ErrorIs(t, err, book.ErrInvalidPrice)

	id, err := e.AddOrder(OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 1, Timestamp: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id, "rejected orders must not consume an order id")
}

func TestEngineSecondSetUpRejected(t *testing.T) {
	e := New(1)
	defer e.Shutdown()
	require.NoError(t, e.SetUp(VariantHeap, []string{"X"}))
	assert.ErrorIs(t, e.SetUp(VariantHeap, []string{"Y"}), ErrAlreadySetUp)
}

func TestEngineMatchesAcrossVariants(t *testing.T) {
	for _, variant := range []Variant{VariantHeap, VariantTable} {
		e := New(4)
		require.NoError(t, e.SetUp(variant, []string{"X"}))

		_, err := e.AddOrder(OrderSpec{Symbol: "X", Side: book.Sell, Price: mustPrice(t, "100"), Quantity: 10, Timestamp: 1})
		require.NoError(t, err)
		_, err = e.AddOrder(OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 4, Timestamp: 2})
		require.NoError(t, err)

		waitFor(t, time.Second, func() bool {
			levels, err := e.TopSell("X", 1)
			return err == nil && len(levels) == 1 && levels[0].Quantity == 6
		})

		e.Shutdown()
	}
}

func TestEngineAddOrderAfterShutdownRejected(t *testing.T) {
	e := New(1)
	require.NoError(t, e.SetUp(VariantHeap, []string{"X"}))
	e.Shutdown()

	_, err := e.AddOrder(OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 1, Timestamp: 1})
	assert.ErrorIs(t, err, ErrShuttingDown)
}

// TestEngineDrainsQueueOnShutdown exercises the drain-completeness Open
// Question: every order submitted before Shutdown is called must be
// either resting or fulfilled by the time Shutdown returns, even under
// concurrent submission from many goroutines.
func TestEngineDrainsQueueOnShutdown(t *testing.T) {
	const workers = 8
	const submitters = 16
	const perSubmitter = 50

	e := New(workers)
	require.NoError(t, e.SetUp(VariantTable, []string{"X"}))

	var wg sync.WaitGroup
	wg.Add(submitters)
	for s := 0; s < submitters; s++ {
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSubmitter; i++ {
				side := book.Buy
				if (s+i)%2 == 0 {
					side = book.Sell
				}
				_, err := e.AddOrder(OrderSpec{
					Symbol:    "X",
					Side:      side,
					Price:     mustPrice(t, "100"),
					Quantity:  1,
					Timestamp: int64(s*perSubmitter + i),
				})
				assert.NoError(t, err)
			}
		}(s)
	}
	wg.Wait()

	e.Shutdown()

	e.mu.Lock()
	remaining := len(e.pending)
	e.mu.Unlock()
	assert.Zero(t, remaining, "pending queue must be empty once Shutdown returns")

	buys, err := e.TopBuy("X", 1000)
	require.NoError(t, err)
	sells, err := e.TopSell("X", 1000)
	require.NoError(t, err)

	var restingBuy, restingSell int64
	for _, l := range buys {
		restingBuy += l.Quantity
	}
	for _, l := range sells {
		restingSell += l.Quantity
	}

	tb := e.books["X"].(*book.TableBook)
	fulfilledCount := len(tb.Fulfilled())

	// Every admitted order ends up exactly once as either resting
	// quantity or an entry in the fulfilled list.
	assert.Equal(t, submitters*perSubmitter, fulfilledCount+int(restingBuy)+int(restingSell))
}

// TestEngineDeduplicatesRepeatedIdempotencyKey exercises AddOrder's
// idempotency-key cache: a resubmission with the same key must return
// the original order id without admitting a second order onto the
// queue.
func TestEngineDeduplicatesRepeatedIdempotencyKey(t *testing.T) {
	e := New(2)
	defer e.Shutdown()
	require.NoError(t, e.SetUp(VariantTable, []string{"X"}))

	key := uuid.New()
	spec := OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 3, Timestamp: 1, IdempotencyKey: key}

	first, err := e.AddOrder(spec)
	require.NoError(t, err)

	second, err := e.AddOrder(spec)
	require.NoError(t, err)
	assert.Equal(t, first, second, "resubmission with the same idempotency key must return the original order id")

	waitFor(t, time.Second, func() bool {
		levels, err := e.TopBuy("X", 1)
		return err == nil && len(levels) == 1
	})

	levels, err := e.TopBuy("X", 1)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, int64(3), levels[0].Quantity, "the duplicate must not have been admitted as a second order")
}

// TestEngineAllowsZeroIdempotencyKey confirms the zero uuid.UUID (the
// default when a caller omits the field) never triggers deduplication.
func TestEngineAllowsZeroIdempotencyKey(t *testing.T) {
	e := New(2)
	defer e.Shutdown()
	require.NoError(t, e.SetUp(VariantTable, []string{"X"}))

	spec := OrderSpec{Symbol: "X", Side: book.Buy, Price: mustPrice(t, "100"), Quantity: 1, Timestamp: 1}

	first, err := e.AddOrder(spec)
	require.NoError(t, err)
	second, err := e.AddOrder(spec)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEngineTopBuyTopSellUnknownSymbol(t *testing.T) {
	e := New(1)
	defer e.Shutdown()
	require.NoError(t, e.SetUp(VariantHeap, []string{"X"}))

	_, err := e.TopBuy("Y", 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = e.TopSell("Y", 1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}
