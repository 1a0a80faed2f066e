package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"quantdesk/internal/domain"
	"quantdesk/internal/util"
)

// Compile-time interface check.
var _ Broker = (*AlpacaBroker)(nil)

// AlpacaBroker implements the Broker interface against the Alpaca paper
// trading and market-data APIs. Iceberg and time-based orders are not part of
// Alpaca's order surface and are rejected with ErrUnsupportedType.
type AlpacaBroker struct {
	trading *alpaca.Client
	data    *marketdata.Client
	limiter *util.RateLimiter
}

// NewAlpacaBroker creates an AlpacaBroker. baseURL selects the trading
// endpoint (paper or live); dataURL may be empty to use the default
// market-data endpoint.
func NewAlpacaBroker(apiKey, apiSecret, baseURL, dataURL string) *AlpacaBroker {
	dataOpts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		dataOpts.BaseURL = dataURL
	}

	return &AlpacaBroker{
		trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		data: marketdata.NewClient(dataOpts),
		// Alpaca's free data tier allows 200 requests/min.
		limiter: util.NewRateLimiter(200),
	}
}

// Name returns "alpaca".
func (b *AlpacaBroker) Name() string {
	return "alpaca"
}

// PlaceOrder submits the order to Alpaca and returns it with the broker's ID
// and status.
func (b *AlpacaBroker) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	req, err := buildOrderRequest(order)
	if err != nil {
		return nil, err
	}

	placed, err := b.trading.PlaceOrder(*req)
	if err != nil {
		return nil, fmt.Errorf("placing %s %s order for %s: %w", order.Side, order.Type, order.Symbol, err)
	}

	result := fromAlpacaOrder(placed)
	result.UserID = order.UserID
	result.Type = order.Type
	return result, nil
}

func buildOrderRequest(order *domain.Order) (*alpaca.PlaceOrderRequest, error) {
	qty := decimal.NewFromInt(int64(order.Qty))
	req := alpaca.PlaceOrderRequest{
		Symbol:      order.Symbol,
		Qty:         &qty,
		TimeInForce: alpaca.Day,
	}

	switch order.Side {
	case domain.SideBuy:
		req.Side = alpaca.Buy
	case domain.SideSell:
		req.Side = alpaca.Sell
	default:
		return nil, fmt.Errorf("%w: side %q", ErrUnsupportedType, order.Side)
	}

	switch order.Type {
	case domain.OrderTypeMarket:
		req.Type = alpaca.Market
	case domain.OrderTypeLimit:
		req.Type = alpaca.Limit
		limit := decimal.NewFromFloat(order.LimitPrice)
		req.LimitPrice = &limit
	case domain.OrderTypeBracket:
		req.Type = alpaca.Market
		req.OrderClass = alpaca.Bracket
		target := decimal.NewFromFloat(order.Target)
		stop := decimal.NewFromFloat(order.StopLoss)
		req.TakeProfit = &alpaca.TakeProfit{LimitPrice: &target}
		req.StopLoss = &alpaca.StopLoss{StopPrice: &stop}
	case domain.OrderTypeTrailingStop:
		req.Type = alpaca.TrailingStop
		trail := decimal.NewFromFloat(order.TrailPct)
		req.TrailPercent = &trail
	default:
		// Iceberg and time-based orders have no Alpaca equivalent.
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, order.Type)
	}
	return &req, nil
}

// ModifyOrder replaces the mutable fields of an open Alpaca order.
func (b *AlpacaBroker) ModifyOrder(ctx context.Context, orderID string, update OrderUpdate) (*domain.Order, error) {
	req := alpaca.ReplaceOrderRequest{}
	if update.Qty > 0 {
		qty := decimal.NewFromInt(int64(update.Qty))
		req.Qty = &qty
	}
	if update.LimitPrice > 0 {
		limit := decimal.NewFromFloat(update.LimitPrice)
		req.LimitPrice = &limit
	}
	if update.StopLoss > 0 {
		stop := decimal.NewFromFloat(update.StopLoss)
		req.StopPrice = &stop
	}

	replaced, err := b.trading.ReplaceOrder(orderID, req)
	if err != nil {
		return nil, fmt.Errorf("replacing order %s: %w", orderID, err)
	}
	return fromAlpacaOrder(replaced), nil
}

// CancelOrder cancels an open Alpaca order.
func (b *AlpacaBroker) CancelOrder(ctx context.Context, orderID string) error {
	if err := b.trading.CancelOrder(orderID); err != nil {
		return fmt.Errorf("cancelling order %s: %w", orderID, err)
	}
	return nil
}

// ListOrders returns recent orders from the Alpaca account, most recent
// first. Alpaca accounts are single-user, so userID is ignored.
func (b *AlpacaBroker) ListOrders(ctx context.Context, _ string) ([]domain.Order, error) {
	raw, err := b.trading.GetOrders(alpaca.GetOrdersRequest{
		Status: "all",
		Limit:  100,
	})
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]domain.Order, 0, len(raw))
	for i := range raw {
		orders = append(orders, *fromAlpacaOrder(&raw[i]))
	}
	return orders, nil
}

// GetQuote returns the latest trade price for a symbol. Calls are paced by
// the data-tier rate limiter.
func (b *AlpacaBroker) GetQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, err
	}

	var trade *marketdata.Trade
	err := util.Retry(ctx, 3, 200*time.Millisecond, func() error {
		var err error
		trade, err = b.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		return err
	})
	if err != nil {
		return domain.Quote{}, fmt.Errorf("fetching latest trade for %s: %w", symbol, err)
	}

	return domain.Quote{
		Symbol:    symbol,
		Price:     trade.Price,
		Timestamp: trade.Timestamp,
	}, nil
}

// GetCandles returns daily bars for the inclusive date range.
func (b *AlpacaBroker) GetCandles(ctx context.Context, symbol string, start, end time.Time) ([]domain.Candle, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bars, err := b.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching bars for %s: %w", symbol, err)
	}

	candles := make([]domain.Candle, 0, len(bars))
	for _, bar := range bars {
		candles = append(candles, domain.Candle{
			Symbol:    symbol,
			Timestamp: bar.Timestamp,
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    int64(bar.Volume),
		})
	}
	return candles, nil
}

// fromAlpacaOrder maps an Alpaca order onto the domain order shape.
func fromAlpacaOrder(o *alpaca.Order) *domain.Order {
	order := &domain.Order{
		ID:        o.ID,
		Symbol:    o.Symbol,
		Status:    mapAlpacaStatus(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}

	if o.Side == alpaca.Sell {
		order.Side = domain.SideSell
	} else {
		order.Side = domain.SideBuy
	}

	switch o.Type {
	case alpaca.Limit:
		order.Type = domain.OrderTypeLimit
	case alpaca.TrailingStop:
		order.Type = domain.OrderTypeTrailingStop
	default:
		order.Type = domain.OrderTypeMarket
	}

	if o.Qty != nil {
		order.Qty = int(o.Qty.IntPart())
	}
	if o.LimitPrice != nil {
		order.LimitPrice, _ = o.LimitPrice.Float64()
	}
	if o.TrailPercent != nil {
		order.TrailPct, _ = o.TrailPercent.Float64()
	}
	if o.FilledAvgPrice != nil {
		order.FilledPrice, _ = o.FilledAvgPrice.Float64()
	}
	return order
}

// mapAlpacaStatus collapses Alpaca's order lifecycle onto the dashboard's
// four statuses.
func mapAlpacaStatus(status string) domain.OrderStatus {
	switch status {
	case "filled":
		return domain.OrderStatusFilled
	case "canceled", "expired", "replaced", "done_for_day":
		return domain.OrderStatusCancelled
	case "rejected", "stopped", "suspended":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusOpen
	}
}
