// Package dispatch implements the ingest pipeline described in §4.5: a
// bounded worker pool draining a single FIFO queue of pending orders,
// routing each by symbol to its book and assigning monotonic order IDs
// at submission time.
package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lxbook/matchcore/internal/book"
)

// idempotencyCacheSize bounds the number of idempotency keys the engine
// remembers. Once full, the oldest key is evicted to make room, so a
// retry submitted long after the cache has wrapped is treated as a new
// order rather than a duplicate.
const idempotencyCacheSize = 4096

// Variant selects which order-book representation SetUp instantiates
// per symbol.
type Variant int

const (
	VariantHeap Variant = iota
	VariantTable
)

// OrderSpec is the caller-supplied half of an order; the engine fills in
// OrderID on admission. IdempotencyKey is optional: a zero uuid.UUID
// disables deduplication for that submission.
type OrderSpec struct {
	Side           book.Side
	Symbol         string
	Price          decimal.Decimal
	Quantity       int64
	Timestamp      int64
	IdempotencyKey uuid.UUID
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger attaches a *zap.Logger. The default is a no-op logger, so
// embedding an Engine in a library never forces log output onto a
// consumer that hasn't asked for it — only cmd/matchengine-server wires
// a real logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetricsNamespace overrides the default Prometheus namespace
// ("matchcore") used for the dispatcher's own metrics.
func WithMetricsNamespace(namespace string) Option {
	return func(e *Engine) { e.metrics = newMetrics(namespace) }
}

type queuedOrder struct {
	order *book.Order
}

// Engine is the concurrency-facing façade described in §6: New spawns a
// fixed worker pool, SetUp creates one book per symbol, AddOrder admits
// orders onto a shared queue those workers drain, and TopBuy/TopSell
// delegate straight to the owning book (which serializes with Process
// via its own lock — see internal/book).
//
// Per §5, orders for the same symbol are processed serially but not
// necessarily in submission order when multiple workers race for the
// queue: price-time priority is defined by the client-supplied
// Timestamp, not by arrival order, so this does not affect correctness.
// A deployment that needs submission-order processing per symbol should
// run one Engine per symbol with a single worker each.
type Engine struct {
	workerCount int
	logger      *zap.Logger
	metrics     *metrics

	books map[string]book.Book

	mu           sync.Mutex
	cond         *sync.Cond
	pending      []queuedOrder
	shuttingDown bool
	setUp        bool

	idempotency      map[uuid.UUID]uint64
	idempotencyOrder []uuid.UUID

	wg          sync.WaitGroup
	nextOrderID atomic.Uint64
}

// New constructs an Engine and immediately spawns workerCount worker
// goroutines. Workers block on the pending queue until SetUp has run and
// AddOrder starts feeding it.
func New(workerCount int, opts ...Option) *Engine {
	if workerCount < 1 {
		workerCount = 1
	}

	e := &Engine{
		workerCount: workerCount,
		logger:      zap.NewNop(),
		metrics:     newMetrics("matchcore"),
		idempotency: make(map[uuid.UUID]uint64),
	}
	e.cond = sync.NewCond(&e.mu)

	for _, opt := range opts {
		opt(e)
	}

	e.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go e.worker(i)
	}

	return e
}

// SetUp creates one book of the requested variant per symbol. It must be
// called exactly once, before any AddOrder.
func (e *Engine) SetUp(variant Variant, symbols []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.setUp {
		return ErrAlreadySetUp
	}

	books := make(map[string]book.Book, len(symbols))
	for _, symbol := range symbols {
		switch variant {
		case VariantHeap:
			books[symbol] = book.NewHeapBook(symbol)
		case VariantTable:
			books[symbol] = book.NewTableBook(symbol)
		default:
			return ErrUnknownVariant
		}
	}

	e.books = books
	e.setUp = true
	e.logger.Info("engine set up", zap.Int("symbols", len(symbols)), zap.Int("variant", int(variant)))
	return nil
}

// AddOrder validates spec, assigns it a monotonic order ID, and pushes
// it onto the pending queue, signalling one waiting worker. It returns
// the assigned ID on success.
//
// If spec.IdempotencyKey is non-zero and was already seen, AddOrder does
// not enqueue a second order: it returns the order ID assigned to the
// original submission.
func (e *Engine) AddOrder(spec OrderSpec) (uint64, error) {
	order := newOrder(0, spec)
	if err := order.Validate(); err != nil {
		e.metrics.ordersRejected.WithLabelValues(rejectReason(err)).Inc()
		return 0, err
	}

	e.mu.Lock()

	if !e.setUp {
		e.mu.Unlock()
		e.metrics.ordersRejected.WithLabelValues("not_set_up").Inc()
		return 0, ErrNotSetUp
	}
	if e.shuttingDown {
		e.mu.Unlock()
		e.metrics.ordersRejected.WithLabelValues("shutting_down").Inc()
		return 0, ErrShuttingDown
	}
	if _, ok := e.books[spec.Symbol]; !ok {
		e.mu.Unlock()
		e.metrics.ordersRejected.WithLabelValues("unknown_symbol").Inc()
		return 0, ErrUnknownSymbol
	}
	if spec.IdempotencyKey != uuid.Nil {
		if id, ok := e.idempotency[spec.IdempotencyKey]; ok {
			e.mu.Unlock()
			e.metrics.ordersRejected.WithLabelValues("duplicate_idempotency_key").Inc()
			return id, nil
		}
	}

	id := e.nextOrderID.Add(1)
	order.ID = id
	e.pending = append(e.pending, queuedOrder{order: order})
	depth := len(e.pending)

	if spec.IdempotencyKey != uuid.Nil {
		e.rememberIdempotencyKey(spec.IdempotencyKey, id)
	}

	e.mu.Unlock()

	e.cond.Signal()
	e.metrics.ordersAdmitted.Inc()
	e.metrics.queueDepth.Set(float64(depth))

	return id, nil
}

// rememberIdempotencyKey records key -> id, evicting the oldest entry
// first if the cache is at capacity. Callers must hold e.mu.
func (e *Engine) rememberIdempotencyKey(key uuid.UUID, id uint64) {
	if len(e.idempotencyOrder) >= idempotencyCacheSize {
		oldest := e.idempotencyOrder[0]
		e.idempotencyOrder = e.idempotencyOrder[1:]
		delete(e.idempotency, oldest)
	}
	e.idempotency[key] = id
	e.idempotencyOrder = append(e.idempotencyOrder, key)
}

// rejectReason maps a book validation error to the label AddOrder's
// rejection counter uses.
func rejectReason(err error) string {
	if errors.Is(err, book.ErrInvalidQuantity) {
		return "invalid_quantity"
	}
	return "invalid_price"
}

// newOrder converts a caller-facing OrderSpec into a book.Order.
func newOrder(id uint64, spec OrderSpec) *book.Order {
	return &book.Order{
		ID:        id,
		Symbol:    spec.Symbol,
		Side:      spec.Side,
		Price:     spec.Price,
		Quantity:  spec.Quantity,
		Timestamp: spec.Timestamp,
	}
}

// worker drains the pending queue until told to shut down. It waits on
// the same lock AddOrder and Shutdown use, with the predicate "shutdown
// AND queue empty" evaluated together — this is the §9 Open Question on
// drain completeness, resolved so a worker can never exit while orders
// are still waiting: the push in AddOrder happens while holding e.mu
// and the worker re-checks the queue under e.mu before every Wait, so
// an order pushed before a worker starts waiting is always seen, even
// though AddOrder calls Signal after releasing the lock.
func (e *Engine) worker(id int) {
	defer e.wg.Done()

	for {
		e.mu.Lock()
		for len(e.pending) == 0 && !e.shuttingDown {
			e.cond.Wait()
		}
		if len(e.pending) == 0 && e.shuttingDown {
			e.mu.Unlock()
			return
		}

		qo := e.pending[0]
		e.pending = e.pending[1:]
		e.metrics.queueDepth.Set(float64(len(e.pending)))
		e.mu.Unlock()

		bk, ok := e.books[qo.order.Symbol]
		if !ok {
			// Cannot happen for orders admitted through AddOrder, which
			// already validates the symbol under the same lock. Guarded
			// defensively in case a future caller bypasses AddOrder.
			e.logger.Error("order for unknown symbol reached worker", zap.String("symbol", qo.order.Symbol), zap.Uint64("order_id", qo.order.ID))
			continue
		}

		start := time.Now()
		fills := bk.Process(qo.order)
		e.metrics.matchingLatency.Observe(time.Since(start).Seconds())
		if len(fills) > 0 {
			e.metrics.fillsExecuted.Add(float64(len(fills)))
		}
	}
}

// TopBuy returns up to n aggregated buy-side price levels for symbol,
// best first.
func (e *Engine) TopBuy(symbol string, n int) ([]book.Level, error) {
	bk, err := e.lookupBook(symbol)
	if err != nil {
		return nil, err
	}
	return bk.TopBuy(n), nil
}

// TopSell returns up to n aggregated sell-side price levels for symbol,
// best first.
func (e *Engine) TopSell(symbol string, n int) ([]book.Level, error) {
	bk, err := e.lookupBook(symbol)
	if err != nil {
		return nil, err
	}
	return bk.TopSell(n), nil
}

// lookupBook reads e.books without a lock: per §5, the symbol map is
// populated only during SetUp and is read-only for the rest of the
// Engine's lifetime, so concurrent reads here are safe once SetUp has
// returned. The setUp flag itself is still read under the lock to avoid
// a data race against a concurrent, in-progress SetUp.
func (e *Engine) lookupBook(symbol string) (book.Book, error) {
	e.mu.Lock()
	setUp := e.setUp
	e.mu.Unlock()

	if !setUp {
		return nil, ErrNotSetUp
	}
	bk, ok := e.books[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	return bk, nil
}

// MetricsRegistry exposes the Engine's private Prometheus registry so a
// caller can serve it, e.g. via promhttp.HandlerFor in
// cmd/matchengine-server. It is never registered against
// prometheus.DefaultRegisterer, so promhttp.Handler() (which reads
// prometheus.DefaultGatherer) will not see these metrics.
func (e *Engine) MetricsRegistry() *prometheus.Registry {
	return e.metrics.Registry()
}

// Shutdown sets the shutdown flag, wakes every worker, and blocks until
// each has drained the queue and exited.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.shuttingDown = true
	e.mu.Unlock()

	e.cond.Broadcast()
	e.wg.Wait()
	e.logger.Info("engine shut down")
}
