// Package httpapi is the thin JSON transport around dispatch.Engine
// described in SPEC_FULL.md's [DOMAIN] HTTP admin/ingest surface: it
// exposes the engine's own AddOrder/TopBuy/TopSell operations, nothing
// more. Routing style is grounded in
// JhonesBR-go-clob/internal/api/orderbook/routes.go.
package httpapi

import (
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lxbook/matchcore/internal/dispatch"
)

// RegisterRoutes wires the order and depth endpoints onto app.
func RegisterRoutes(app *fiber.App, engine *dispatch.Engine, logger *zap.Logger) {
	h := &handlers{engine: engine, logger: logger}

	app.Post("/v1/orders", h.placeOrder)
	app.Get("/v1/books/:symbol/top", h.depth)
	app.Get("/healthz", h.health)
}
