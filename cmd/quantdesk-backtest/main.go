// quantdesk-backtest runs a one-off simulation from the command line and
// prints the performance summary, without touching any store.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"quantdesk/internal/backtest"
	"quantdesk/internal/domain"
	"quantdesk/internal/marketdata"
	"quantdesk/internal/metrics"
)

func main() {
	var (
		startFlag   = flag.String("start", "", "start date (YYYY-MM-DD, required)")
		endFlag     = flag.String("end", "", "end date (YYYY-MM-DD, required)")
		capitalFlag = flag.Float64("capital", 10000, "initial capital")
		seedFlag    = flag.Uint64("seed", 0, "random seed (0 = time-based)")
		tradesFlag  = flag.Bool("trades", false, "print individual trades")
	)
	flag.Parse()

	if *startFlag == "" || *endFlag == "" {
		log.Fatal("-start and -end are required")
	}
	start, err := time.Parse("2006-01-02", *startFlag)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	end, err := time.Parse("2006-01-02", *endFlag)
	if err != nil {
		log.Fatalf("bad -end: %v", err)
	}

	req := domain.BacktestRequest{
		StrategyID:     "cli",
		Start:          start,
		End:            end,
		InitialCapital: *capitalFlag,
	}
	if err := req.Validate(); err != nil {
		log.Fatal(err)
	}

	var rng *rand.Rand
	if *seedFlag != 0 {
		rng = rand.New(rand.NewPCG(*seedFlag, *seedFlag))
	}

	engine := backtest.NewEngine(marketdata.NewMockPriceSource(rng), rng)
	out := engine.Run(req)

	finalValue := req.InitialCapital
	if n := len(out.DailyValues); n > 0 {
		finalValue = out.DailyValues[n-1].Value
	}

	values := make([]float64, len(out.DailyValues))
	for i, dv := range out.DailyValues {
		values[i] = dv.Value
	}
	returns := metrics.DailyReturns(values)
	_, _, wins, losses := metrics.SplitTrades(out.Trades)

	fmt.Printf("period           %s .. %s (%d days)\n", *startFlag, *endFlag, len(out.DailyValues))
	fmt.Printf("initial capital  %12.2f\n", req.InitialCapital)
	fmt.Printf("final value      %12.2f\n", finalValue)
	fmt.Printf("total return     %11.2f%%\n", metrics.TotalReturn(req.InitialCapital, finalValue))
	fmt.Printf("max drawdown     %11.2f%%\n", out.MaxDrawdownPct)
	if sharpe := metrics.BacktestSharpe(returns); sharpe != nil {
		fmt.Printf("sharpe ratio     %12.4f\n", *sharpe)
	} else {
		fmt.Printf("sharpe ratio     %12s\n", "n/a")
	}
	fmt.Printf("volatility       %11.2f%%\n", metrics.AnnualizedVolatility(returns)*100)
	fmt.Printf("trades           %12d (%d wins, %d losses)\n", len(out.Trades), wins, losses)
	fmt.Printf("profit factor    %12.2f\n", metrics.ProfitFactor(out.Trades))

	if *tradesFlag {
		fmt.Println()
		for _, tr := range out.Trades {
			fmt.Printf("%s  %-4s %-10s qty %2d @ %9.2f  pnl %+8.2f\n",
				tr.Date.Format("2006-01-02"), tr.Side, tr.Symbol, tr.Quantity, tr.Price, tr.PnL)
		}
	}
}
