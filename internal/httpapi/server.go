// Package httpapi serves the dashboard REST API: backtests, strategies,
// portfolio risk, and broker orders.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quantdesk/internal/backtest"
	"quantdesk/internal/broker"
	"quantdesk/internal/domain"
	"quantdesk/internal/risk"
	"quantdesk/internal/store"
)

// defaultUser scopes requests that carry no explicit user query param. The
// dashboard is single-tenant today.
const defaultUser = "default"

// Server serves the dashboard HTTP API.
type Server struct {
	backtests  *backtest.Service
	strategies store.StrategyStore
	risk       *risk.Service
	broker     broker.Broker
	log        *slog.Logger
}

// NewServer creates a new API server.
func NewServer(backtests *backtest.Service, strategies store.StrategyStore, riskSvc *risk.Service, brk broker.Broker, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		backtests:  backtests,
		strategies: strategies,
		risk:       riskSvc,
		broker:     brk,
		log:        log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtests", s.handleRunBacktest)
	mux.HandleFunc("GET /api/backtests", s.handleListBacktests)
	mux.HandleFunc("GET /api/backtests/{id}", s.handleGetBacktest)

	mux.HandleFunc("POST /api/strategies", s.handleCreateStrategy)
	mux.HandleFunc("GET /api/strategies", s.handleListStrategies)
	mux.HandleFunc("GET /api/strategies/{id}", s.handleGetStrategy)
	mux.HandleFunc("DELETE /api/strategies/{id}", s.handleDeleteStrategy)

	mux.HandleFunc("GET /api/risk", s.handleRiskMetrics)
	mux.HandleFunc("GET /api/portfolio/history", s.handlePortfolioHistory)
	mux.HandleFunc("POST /api/portfolio/history", s.handleRecordValue)

	mux.HandleFunc("POST /api/orders", s.handlePlaceOrder)
	mux.HandleFunc("GET /api/orders", s.handleListOrders)
	mux.HandleFunc("PATCH /api/orders/{id}", s.handleModifyOrder)
	mux.HandleFunc("DELETE /api/orders/{id}", s.handleCancelOrder)

	mux.HandleFunc("GET /api/quotes/{symbol}", s.handleQuote)
	mux.HandleFunc("GET /api/candles/{symbol}", s.handleCandles)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeServiceError maps well-known service errors to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, broker.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrStrategyNotFound),
		errors.Is(err, store.ErrBacktestNotFound),
		errors.Is(err, broker.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, broker.ErrOrderNotOpen):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// userID extracts the requesting user from the "user" query param.
func userID(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return defaultUser
}

// ---------------------------------------------------------------------------
// Backtests
// ---------------------------------------------------------------------------

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var body RunBacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := body.toDomain()
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	result, err := s.backtests.Run(r.Context(), req, userID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListBacktests(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	strategyID := r.URL.Query().Get("strategy_id")

	results, err := s.backtests.List(r.Context(), userID(r), strategyID, limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []domain.BacktestResult{}
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.BacktestResult]{Items: results})
}

func (s *Server) handleGetBacktest(w http.ResponseWriter, r *http.Request) {
	result, err := s.backtests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ---------------------------------------------------------------------------
// Strategies
// ---------------------------------------------------------------------------

func (s *Server) handleCreateStrategy(w http.ResponseWriter, r *http.Request) {
	var body CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.ID == "" || body.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	strat := &domain.Strategy{
		ID:          body.ID,
		Name:        body.Name,
		Description: body.Description,
		Symbols:     body.Symbols,
		Params:      body.Params,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.strategies.SaveStrategy(r.Context(), strat); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, strat)
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.strategies.ListStrategies(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if strategies == nil {
		strategies = []domain.Strategy{}
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.Strategy]{Items: strategies})
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	strat, err := s.strategies.GetStrategy(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strat)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	if err := s.strategies.DeleteStrategy(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Portfolio and risk
// ---------------------------------------------------------------------------

func (s *Server) handleRiskMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := s.risk.PortfolioRiskMetrics(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := s.risk.History(r.Context(), userID(r), limit)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if history == nil {
		history = []domain.PortfolioValue{}
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.PortfolioValue]{Items: history})
}

func (s *Server) handleRecordValue(w http.ResponseWriter, r *http.Request) {
	var body RecordValueRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Value <= 0 {
		writeError(w, http.StatusBadRequest, "value must be positive")
		return
	}

	v := domain.PortfolioValue{
		UserID:    userID(r),
		Value:     body.Value,
		Timestamp: time.Now().UTC(),
	}
	if err := s.risk.RecordValue(r.Context(), v); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// ---------------------------------------------------------------------------
// Orders and market data
// ---------------------------------------------------------------------------

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var body PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.Symbol == "" || body.Qty <= 0 {
		writeError(w, http.StatusBadRequest, "symbol and positive qty are required")
		return
	}

	order := &domain.Order{
		UserID:     userID(r),
		Symbol:     strings.ToUpper(body.Symbol),
		Side:       domain.Side(strings.ToUpper(body.Side)),
		Type:       domain.OrderType(strings.ToUpper(body.Type)),
		Qty:        body.Qty,
		LimitPrice: body.LimitPrice,
		StopLoss:   body.StopLoss,
		Target:     body.Target,
		TrailPct:   body.TrailPct,
		DisplayQty: body.DisplayQty,
		TriggerAt:  body.TriggerAt,
	}
	if order.Side != domain.SideBuy && order.Side != domain.SideSell {
		writeError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	if order.Type == "" {
		order.Type = domain.OrderTypeMarket
	}

	placed, err := s.broker.PlaceOrder(r.Context(), order)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.broker.ListOrders(r.Context(), userID(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.Order]{Items: orders})
}

func (s *Server) handleModifyOrder(w http.ResponseWriter, r *http.Request) {
	var update broker.OrderUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := s.broker.ModifyOrder(r.Context(), r.PathValue("id"), update)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := s.broker.CancelOrder(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	quote, err := s.broker.GetQuote(r.Context(), symbol)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))

	q := r.URL.Query()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad start date")
			return
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad end date")
			return
		}
		end = t
	}

	candles, err := s.broker.GetCandles(r.Context(), symbol, start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if candles == nil {
		candles = []domain.Candle{}
	}
	writeJSON(w, http.StatusOK, ListResponse[domain.Candle]{Items: candles})
}
