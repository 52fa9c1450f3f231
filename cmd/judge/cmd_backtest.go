package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"AssetJudge/internal/backtest"
	"AssetJudge/internal/collector"
	"AssetJudge/internal/model"
	"AssetJudge/internal/scanner"
)

var (
	btTickers   []string
	btDays      int
	btStartCash float64
	btPerTrade  float64
	btAllocate  bool
	btOutput    string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the MA200 trend rule over daily history",
	Long: `Replay the MA200 entry rule over each ticker's daily history with a
stop-loss (settings.stop_loss_percent) and MA200-break exit, then report
paired trades, win rate, return and maximum drawdown.

With --allocate a live scan is run first and each ticker's recommended
amount from the allocation plan replaces the fixed per-trade budget.

Examples:
  judge backtest
  judge backtest --tickers NVDA,AAPL --days 500 --per-trade 1000000
  judge backtest --allocate --output backtest.json`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringSliceVar(&btTickers, "tickers", nil, "Tickers to replay (default: configured universe)")
	backtestCmd.Flags().IntVar(&btDays, "days", 500, "Daily bars to fetch per ticker")
	backtestCmd.Flags().Float64Var(&btStartCash, "start-cash", 0, "Starting cash (default: portfolio equity)")
	backtestCmd.Flags().Float64Var(&btPerTrade, "per-trade", 100000, "Budget per entry when no allocation applies")
	backtestCmd.Flags().BoolVar(&btAllocate, "allocate", false, "Size entries from a live scan's allocation plan")
	backtestCmd.Flags().StringVar(&btOutput, "output", "", "Output file (default: stdout)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if btDays <= backtest.DefaultMAPeriod {
		return fmt.Errorf("--days must exceed %d", backtest.DefaultMAPeriod)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := cfg.Universe.Tickers
	if len(btTickers) > 0 {
		tickers = make([]string, len(btTickers))
		for i, t := range btTickers {
			tickers[i] = strings.ToUpper(strings.TrimSpace(t))
		}
	}

	startCash := btStartCash
	if startCash <= 0 {
		startCash = a.Portfolio.Equity()
	}
	st := a.Settings.Get()
	bc := backtest.Config{
		StartCash:       decimal.NewFromFloat(startCash),
		PerTrade:        decimal.NewFromFloat(btPerTrade),
		StopLossPercent: st.StopLossPercent,
	}

	if btAllocate {
		res, err := scanAllocations(ctx, a, startCash, st)
		if err != nil {
			return err
		}
		bc.Allocations = allocationMap(res)
	}

	series, err := fetchSeries(ctx, a.Fetcher, tickers, btDays)
	if err != nil {
		return err
	}
	r, err := backtest.Run(series, bc)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if btOutput == "" {
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	return os.WriteFile(btOutput, data, 0o644)
}

func scanAllocations(ctx context.Context, a *app, equity float64, st model.Settings) (*model.ScanResult, error) {
	batch, fetchErr := a.Collector.Collect(ctx)
	in := scanner.Input{Equity: equity, Settings: st, FetchErr: fetchErr}
	if batch != nil {
		in.VIX, in.Snapshots, in.Indices, in.Excluded = batch.VIX, batch.Snapshots, batch.Indices, batch.Excluded
	}
	res := a.Orchestrator.Run(in)
	if res.Status == model.StatusError || res.Status == model.StatusQuotaExceeded {
		return nil, fmt.Errorf("allocation scan %s: %s", res.Status, res.Message)
	}
	return res, nil
}

// allocationMap turns a scan into per-ticker budgets. Tickers that were not
// recommended for purchase get a zero budget.
func allocationMap(res *model.ScanResult) map[string]decimal.Decimal {
	m := make(map[string]decimal.Decimal, len(res.Items))
	for _, it := range res.Items {
		if it.Action != model.ActionBuy {
			m[it.Ticker] = decimal.Zero
			continue
		}
		m[it.Ticker] = it.RecommendedAmount
	}
	return m
}

// fetchSeries loads history for each ticker. A quota error aborts; any other
// failure drops only that ticker.
func fetchSeries(ctx context.Context, f collector.Fetcher, tickers []string, days int) ([]backtest.Series, error) {
	series := make([]backtest.Series, 0, len(tickers))
	for _, t := range tickers {
		bars, err := f.FetchDailyBars(ctx, t, days)
		if errors.Is(err, collector.ErrQuotaExceeded) {
			return nil, err
		}
		if err != nil {
			log.Warn().Err(err).Str("ticker", t).Msg("history unavailable, skipped")
			continue
		}
		series = append(series, backtest.Series{Ticker: t, Bars: bars})
	}
	return series, nil
}
