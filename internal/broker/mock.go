package broker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quantdesk/internal/domain"
	"quantdesk/internal/marketdata"
)

// Compile-time interface check.
var _ Broker = (*MockBroker)(nil)

// MockBroker is an in-memory broker backed by the synthetic price feed.
// Market orders fill immediately at the current simulated price; every other
// order type rests OPEN until cancelled. Safe for concurrent use.
type MockBroker struct {
	prices *marketdata.MockPriceSource

	mu     sync.Mutex
	orders map[string]*domain.Order
}

// NewMockBroker creates a mock broker over the given price source. A nil
// source gets a fresh time-seeded one.
func NewMockBroker(prices *marketdata.MockPriceSource) *MockBroker {
	if prices == nil {
		prices = marketdata.NewMockPriceSource(nil)
	}
	return &MockBroker{
		prices: prices,
		orders: make(map[string]*domain.Order),
	}
}

// Name returns "mock".
func (b *MockBroker) Name() string {
	return "mock"
}

// PlaceOrder accepts the order, assigns an ID, and fills market orders at the
// current simulated price. Advanced types (limit, bracket, trailing stop,
// iceberg, time-based) are accepted and rest OPEN.
func (b *MockBroker) PlaceOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	now := time.Now().UTC()
	o := *order
	o.ID = uuid.NewString()
	o.CreatedAt = now
	o.UpdatedAt = now

	if o.Type == domain.OrderTypeMarket {
		o.Status = domain.OrderStatusFilled
		o.FilledPrice = b.prices.PriceFor(o.Symbol)
	} else {
		o.Status = domain.OrderStatusOpen
	}

	b.mu.Lock()
	b.orders[o.ID] = &o
	b.mu.Unlock()

	result := o
	return &result, nil
}

// ModifyOrder updates the mutable fields of an open order.
func (b *MockBroker) ModifyOrder(_ context.Context, orderID string, update OrderUpdate) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	if update.Qty > 0 {
		o.Qty = update.Qty
	}
	if update.LimitPrice > 0 {
		o.LimitPrice = update.LimitPrice
	}
	if update.StopLoss > 0 {
		o.StopLoss = update.StopLoss
	}
	if update.Target > 0 {
		o.Target = update.Target
	}
	o.UpdatedAt = time.Now().UTC()

	result := *o
	return &result, nil
}

// CancelOrder cancels an open order.
func (b *MockBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if o.Status != domain.OrderStatusOpen {
		return ErrOrderNotOpen
	}
	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// ListOrders returns the user's orders, most recent first.
func (b *MockBroker) ListOrders(_ context.Context, userID string) ([]domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var orders []domain.Order
	for _, o := range b.orders {
		if o.UserID == userID {
			orders = append(orders, *o)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

// GetQuote returns a simulated quote for the symbol.
func (b *MockBroker) GetQuote(_ context.Context, symbol string) (domain.Quote, error) {
	return b.prices.Quote(symbol), nil
}

// GetCandles returns synthetic daily candles for the inclusive date range.
func (b *MockBroker) GetCandles(_ context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	return b.prices.Candles(symbol, start, end), nil
}
