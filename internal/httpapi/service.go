package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lxbook/matchcore/internal/book"
	"github.com/lxbook/matchcore/internal/dispatch"
)

var validate = validator.New()

type handlers struct {
	engine *dispatch.Engine
	logger *zap.Logger
}

// placeOrder handles POST /v1/orders, following the
// bind-then-validate-then-call-domain shape of
// JhonesBR-go-clob/internal/api/orderbook/service.go's PlaceOrderHandler.
func (h *handlers) placeOrder(c fiber.Ctx) error {
	var req PlaceOrderSchema
	if err := c.Bind().Body(&req); err != nil {
		return fiber.ErrBadRequest
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	id, err := h.engine.AddOrder(dispatch.OrderSpec{
		Symbol:         req.Symbol,
		Side:           req.side(),
		Price:          req.Price,
		Quantity:       req.Quantity,
		Timestamp:      req.Timestamp,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return h.mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(PlaceOrderResponse{OrderID: id})
}

// depth handles GET /v1/books/:symbol/top?side=buy&n=10.
func (h *handlers) depth(c fiber.Ctx) error {
	symbol := c.Params("symbol")
	side := c.Query("side", "buy")
	n, err := strconv.Atoi(c.Query("n", "10"))
	if err != nil || n <= 0 {
		n = 10
	}

	var levels []book.Level
	switch side {
	case "buy":
		levels, err = h.engine.TopBuy(symbol, n)
	case "sell":
		levels, err = h.engine.TopSell(symbol, n)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "side must be buy or sell"})
	}
	if err != nil {
		return h.mapDomainError(c, err)
	}

	return c.JSON(DepthResponse{Symbol: symbol, Side: side, Levels: toLevelSchemas(levels)})
}

func (h *handlers) health(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

// mapDomainError maps dispatch/book sentinel errors to HTTP status
// codes, the way
// JhonesBR-go-clob/internal/api/orderbook/service.go maps pgx.ErrNoRows
// and balance checks to specific fiber statuses instead of a blanket
// 500.
func (h *handlers) mapDomainError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, dispatch.ErrUnknownSymbol):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, dispatch.ErrNotSetUp):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, dispatch.ErrShuttingDown):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, book.ErrInvalidQuantity), errors.Is(err, book.ErrInvalidPrice):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("unhandled domain error", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
