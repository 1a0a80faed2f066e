package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"quantdesk/internal/backtest"
	"quantdesk/internal/broker"
	"quantdesk/internal/config"
	"quantdesk/internal/domain"
	"quantdesk/internal/httpapi"
	"quantdesk/internal/marketdata"
	"quantdesk/internal/risk"
	"quantdesk/internal/store"
	"quantdesk/internal/util"
)

func main() {
	// Local credentials live in .env during development; missing file is fine.
	_ = godotenv.Load()

	cfgPath := "config/quantdesk.yaml"
	if p := os.Getenv("QUANTDESK_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open sqlite store: %v", err)
	}
	defer db.Close()
	archive := store.NewParquetStore(cfg.Storage.DataDir)

	prices := marketdata.NewMockPriceSource(nil)
	engine := backtest.NewEngine(prices, nil)
	backtests := backtest.NewService(db, db, archive, engine, logger)
	riskSvc := risk.NewService(db, cfg.Risk.HistoryWindow, cfg.Risk.RiskFreeRate, logger)

	var brk broker.Broker
	switch cfg.Broker.Mode {
	case "alpaca":
		brk = broker.NewAlpacaBroker(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.DataURL)
	default:
		brk = broker.NewMockBroker(prices)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := seedStrategies(ctx, db); err != nil {
		log.Fatalf("failed to seed strategies: %v", err)
	}

	api := httpapi.NewServer(backtests, db, riskSvc, brk, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("quantdesk-server listening", "addr", srv.Addr, "broker", brk.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// seedStrategies inserts a starter strategy set on first run so the dashboard
// has something to backtest out of the box.
func seedStrategies(ctx context.Context, strategies store.StrategyStore) error {
	existing, err := strategies.ListStrategies(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	now := time.Now().UTC()
	seed := []domain.Strategy{
		{
			ID:          "momentum",
			Name:        "Momentum",
			Description: "Buys recent winners, sells recent losers",
			Symbols:     []string{"RELIANCE", "TCS", "INFY"},
			Params:      map[string]float64{"lookback_days": 20, "threshold_pct": 5},
			CreatedAt:   now,
		},
		{
			ID:          "mean-reversion",
			Name:        "Mean Reversion",
			Description: "Fades moves away from the rolling average",
			Symbols:     []string{"HDFCBANK", "ICICIBANK"},
			Params:      map[string]float64{"window_days": 10, "entry_zscore": 2},
			CreatedAt:   now,
		},
	}
	for i := range seed {
		if err := strategies.SaveStrategy(ctx, &seed[i]); err != nil {
			return err
		}
	}
	return nil
}
