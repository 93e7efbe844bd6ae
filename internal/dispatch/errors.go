package dispatch

import "errors"

// Sentinel errors for the §7 error kinds. AddOrder and SetUp return
// these rather than panicking, in keeping with the "return a dedicated
// error value" alternative the spec permits for configuration errors,
// and mirroring the teacher's own error-variable block in
// pkg/lx/orderbook.go (var ErrOrderNotFound = fmt.Errorf(...)).
var (
	// ErrNotSetUp is returned by AddOrder/TopBuy/TopSell when SetUp has
	// not yet run.
	ErrNotSetUp = errors.New("dispatch: engine not set up")
	// ErrAlreadySetUp is returned by a second call to SetUp. The spec
	// leaves repeat calls unspecified; this implementation rejects them
	// rather than silently discarding the first symbol universe.
	ErrAlreadySetUp = errors.New("dispatch: engine already set up")
	// ErrUnknownVariant is returned by SetUp for an unrecognized Variant.
	ErrUnknownVariant = errors.New("dispatch: unknown book variant")
	// ErrUnknownSymbol is returned when an order or query names a symbol
	// the engine was not configured for.
	ErrUnknownSymbol = errors.New("dispatch: unknown symbol")
	// ErrShuttingDown is returned by AddOrder once Shutdown has been
	// called.
	ErrShuttingDown = errors.New("dispatch: engine is shutting down")
)
