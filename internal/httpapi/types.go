package httpapi

import (
	"fmt"
	"time"

	"quantdesk/internal/domain"
)

// dateLayout is the wire format for calendar dates.
const dateLayout = "2006-01-02"

// RunBacktestRequest is the POST /api/backtests payload.
type RunBacktestRequest struct {
	StrategyID     string  `json:"strategy_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	InitialCapital float64 `json:"initial_capital"`
}

// toDomain parses the wire dates into a domain request. Zero times pass
// through so Validate reports missing fields consistently.
func (r RunBacktestRequest) toDomain() (domain.BacktestRequest, error) {
	req := domain.BacktestRequest{
		StrategyID:     r.StrategyID,
		InitialCapital: r.InitialCapital,
	}
	if r.StartDate != "" {
		start, err := time.Parse(dateLayout, r.StartDate)
		if err != nil {
			return req, fmt.Errorf("%w: bad start_date %q", domain.ErrInvalidRequest, r.StartDate)
		}
		req.Start = start
	}
	if r.EndDate != "" {
		end, err := time.Parse(dateLayout, r.EndDate)
		if err != nil {
			return req, fmt.Errorf("%w: bad end_date %q", domain.ErrInvalidRequest, r.EndDate)
		}
		req.End = end
	}
	return req, nil
}

// CreateStrategyRequest is the POST /api/strategies payload.
type CreateStrategyRequest struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Symbols     []string           `json:"symbols"`
	Params      map[string]float64 `json:"params"`
}

// PlaceOrderRequest is the POST /api/orders payload.
type PlaceOrderRequest struct {
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Type       string     `json:"type"`
	Qty        int        `json:"qty"`
	LimitPrice float64    `json:"limit_price,omitempty"`
	StopLoss   float64    `json:"stop_loss,omitempty"`
	Target     float64    `json:"target,omitempty"`
	TrailPct   float64    `json:"trail_pct,omitempty"`
	DisplayQty int        `json:"display_qty,omitempty"`
	TriggerAt  *time.Time `json:"trigger_at,omitempty"`
}

// RecordValueRequest is the POST /api/portfolio/history payload.
type RecordValueRequest struct {
	Value float64 `json:"value"`
}

// ListResponse wraps list endpoints so the payload stays extensible.
type ListResponse[T any] struct {
	Items []T `json:"items"`
}
