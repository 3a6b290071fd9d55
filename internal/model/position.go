package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks an order through its lifecycle. Terminal statuses are
// never mutated afterwards.
type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderFilled   OrderStatus = "FILLED"
	OrderRejected OrderStatus = "REJECTED"
	OrderFailed   OrderStatus = "FAILED"
)

// Terminal reports whether the status is final.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderRejected || s == OrderFailed
}

// OrderSide is the exchange-facing direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Order is a single market order owned by the position manager.
type Order struct {
	ClientID    string          `json:"client_id"`
	ExchangeID  string          `json:"exchange_id,omitempty"`
	Symbol      string          `json:"symbol"`
	Side        OrderSide       `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Status      OrderStatus     `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// PositionState is the single source of truth for the bot's exposure on one
// symbol. Side always reflects the last FILLED order, or FLAT if none yet.
type PositionState struct {
	Symbol    string          `json:"symbol"`
	Side      Decision        `json:"side"`
	Quantity  decimal.Decimal `json:"quantity"`
	OpenedAt  time.Time       `json:"opened_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
