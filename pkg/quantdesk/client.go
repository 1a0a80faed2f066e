// Package quantdesk provides a Go SDK for the quantdesk-server API.
package quantdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"quantdesk/internal/domain"
)

// Client provides a Go SDK for interacting with the quantdesk-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new quantdesk API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// RunBacktestRequest mirrors the POST /api/backtests payload.
type RunBacktestRequest struct {
	StrategyID     string  `json:"strategy_id"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	InitialCapital float64 `json:"initial_capital"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// RunBacktest runs a backtest and returns the full result.
func (c *Client) RunBacktest(ctx context.Context, req RunBacktestRequest) (*domain.BacktestResult, error) {
	var result domain.BacktestResult
	if err := c.do(ctx, http.MethodPost, "/api/backtests", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBacktest retrieves a backtest result by ID, including its equity curve.
func (c *Client) GetBacktest(ctx context.Context, id string) (*domain.BacktestResult, error) {
	var result domain.BacktestResult
	if err := c.do(ctx, http.MethodGet, "/api/backtests/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBacktests retrieves result summaries, most recent first.
func (c *Client) ListBacktests(ctx context.Context, strategyID string, limit int) ([]domain.BacktestResult, error) {
	path := "/api/backtests"
	q := url.Values{}
	if strategyID != "" {
		q.Set("strategy_id", strategyID)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp listResponse[domain.BacktestResult]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// ListStrategies retrieves all strategy definitions.
func (c *Client) ListStrategies(ctx context.Context) ([]domain.Strategy, error) {
	var resp listResponse[domain.Strategy]
	if err := c.do(ctx, http.MethodGet, "/api/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// RiskMetrics retrieves the current portfolio risk metrics.
func (c *Client) RiskMetrics(ctx context.Context) (*domain.PortfolioRiskMetrics, error) {
	var m domain.PortfolioRiskMetrics
	if err := c.do(ctx, http.MethodGet, "/api/risk", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Quote retrieves the latest price for a symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	var q domain.Quote
	if err := c.do(ctx, http.MethodGet, "/api/quotes/"+url.PathEscape(symbol), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// do executes one API call and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
