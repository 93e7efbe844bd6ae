package httpapi

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lxbook/matchcore/internal/book"
)

// PlaceOrderSchema is the request body for POST /v1/orders, validated
// with go-playground/validator/v10 the way
// JhonesBR-go-clob/internal/api/orderbook/schema.go validates
// PlaceOrderSchema. IdempotencyKey is optional; when set, a resubmission
// with the same key is deduplicated by dispatch.Engine.AddOrder rather
// than admitted as a second order.
type PlaceOrderSchema struct {
	IdempotencyKey uuid.UUID       `json:"idempotency_key"`
	Symbol         string          `json:"symbol" validate:"required"`
	Side           string          `json:"side" validate:"required,oneof=buy sell"`
	Price          decimal.Decimal `json:"price" validate:"required"`
	Quantity       int64           `json:"quantity" validate:"required,gt=0"`
	Timestamp      int64           `json:"timestamp" validate:"required,gt=0"`
}

func (p PlaceOrderSchema) side() book.Side {
	if p.Side == "sell" {
		return book.Sell
	}
	return book.Buy
}

// PlaceOrderResponse is returned on successful admission.
type PlaceOrderResponse struct {
	OrderID uint64 `json:"order_id"`
}

// LevelSchema mirrors book.Level for JSON responses.
type LevelSchema struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

// DepthResponse is returned by GET /v1/books/:symbol/top.
type DepthResponse struct {
	Symbol string        `json:"symbol"`
	Side   string        `json:"side"`
	Levels []LevelSchema `json:"levels"`
}

func toLevelSchemas(levels []book.Level) []LevelSchema {
	out := make([]LevelSchema, len(levels))
	for i, l := range levels {
		out[i] = LevelSchema{Price: l.Price, Quantity: l.Quantity}
	}
	return out
}
