// Package broker defines the Broker interface and provides implementations
// for placing and managing orders: an in-memory mock for local use and an
// Alpaca-backed broker for paper trading.
package broker

import (
	"context"
	"errors"
	"time"

	"quantdesk/internal/domain"
)

// Sentinel errors surfaced by broker implementations.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderNotOpen    = errors.New("order is not open")
	ErrUnsupportedType = errors.New("order type not supported by this broker")
)

// OrderUpdate carries the mutable fields of an open order. Zero values leave
// the corresponding field unchanged.
type OrderUpdate struct {
	Qty        int     `json:"qty,omitempty"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	Target     float64 `json:"target,omitempty"`
}

// Broker abstracts brokerage operations for order execution and market data.
type Broker interface {
	// Name returns the broker identifier (e.g. "alpaca", "mock").
	Name() string

	// PlaceOrder submits an order and returns it with ID and status assigned.
	PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)

	// ModifyOrder updates an open order. Returns ErrOrderNotFound for an
	// unknown ID and ErrOrderNotOpen for a filled or cancelled order.
	ModifyOrder(ctx context.Context, orderID string, update OrderUpdate) (*domain.Order, error)

	// CancelOrder cancels an open order by its ID.
	CancelOrder(ctx context.Context, orderID string) error

	// ListOrders returns the user's orders, most recent first.
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)

	// GetQuote returns the latest price for a symbol.
	GetQuote(ctx context.Context, symbol string) (domain.Quote, error)

	// GetCandles returns daily OHLCV bars for the inclusive date range.
	GetCandles(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error)
}
