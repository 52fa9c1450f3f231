// Package backtest replays the MA200 trend rule over daily history: buy when
// the close rises above its MA200, exit on a stop-loss or an MA200 break.
package backtest

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"AssetJudge/internal/calculator"
	"AssetJudge/internal/model"
)

// Exit reasons.
const (
	ExitStopLoss   = "stoploss"
	ExitMA200Break = "ma200_break"
	ExitEnd        = "end"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// DefaultMAPeriod is the trend filter length.
const DefaultMAPeriod = 200

var ErrNoCash = errors.New("start cash must be positive")

// Series is the daily history of one ticker, oldest first.
type Series struct {
	Ticker string
	Bars   []model.OHLCV
}

// Config drives one run. Allocations overrides PerTrade per ticker; a zero
// allocation means the ticker is never bought.
type Config struct {
	StartCash       decimal.Decimal
	PerTrade        decimal.Decimal
	Allocations     map[string]decimal.Decimal
	StopLossPercent float64
	MAPeriod        int
}

// Trade is one executed order.
type Trade struct {
	Ticker string          `json:"ticker"`
	Action string          `json:"action"`
	Time   time.Time       `json:"time"`
	Price  float64         `json:"price"`
	Shares int64           `json:"shares"`
	Reason string          `json:"reason,omitempty"`
	Cash   decimal.Decimal `json:"cash_after"`
}

// Pair is a matched buy and sell.
type Pair struct {
	Ticker    string          `json:"ticker"`
	BuyPrice  float64         `json:"buy_price"`
	SellPrice float64         `json:"sell_price"`
	Shares    int64           `json:"shares"`
	PnL       decimal.Decimal `json:"pnl"`
	Reason    string          `json:"reason"`
	Entry     time.Time       `json:"entry"`
	Exit      time.Time       `json:"exit"`
}

// Skipped records a ticker that could not be replayed.
type Skipped struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// Result summarises a run. WinRate is nil when no trade was closed.
type Result struct {
	StartCash   decimal.Decimal `json:"start_cash"`
	FinalCash   decimal.Decimal `json:"final_cash"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	ReturnPct   float64         `json:"return_pct"`
	TotalTrades int             `json:"total_trades"`
	TradePairs  int             `json:"trade_pairs"`
	Wins        int             `json:"wins"`
	WinRate     *float64        `json:"win_rate"`
	MDDPct      float64         `json:"mdd_pct"`
	Pairs       []Pair          `json:"paired_trades"`
	Trades      []Trade         `json:"trades"`
	Skipped     []Skipped       `json:"skipped,omitempty"`
}

// Run replays every series in order against one shared cash balance.
// Drawdown is measured on the cash balance after each realised sale.
func Run(series []Series, cfg Config) (*Result, error) {
	if !cfg.StartCash.IsPositive() {
		return nil, ErrNoCash
	}
	if cfg.StopLossPercent <= 0 || cfg.StopLossPercent >= 100 {
		return nil, fmt.Errorf("stop loss %.2f%% out of range", cfg.StopLossPercent)
	}
	period := cfg.MAPeriod
	if period <= 0 {
		period = DefaultMAPeriod
	}

	r := &Result{StartCash: cfg.StartCash, Pairs: []Pair{}, Trades: []Trade{}}
	cash := cfg.StartCash
	equity := []decimal.Decimal{cash}

	for _, s := range series {
		if len(s.Bars) <= period {
			r.Skipped = append(r.Skipped, Skipped{
				Ticker: s.Ticker,
				Reason: fmt.Sprintf("%d bars, need more than %d", len(s.Bars), period),
			})
			continue
		}
		budget := cfg.PerTrade
		if a, ok := cfg.Allocations[s.Ticker]; ok && !a.IsNegative() {
			budget = a
		}
		cash, equity = replay(s, budget, cfg.StopLossPercent, period, cash, equity, r)
	}

	r.FinalCash = cash
	r.TotalProfit = cash.Sub(cfg.StartCash)
	r.ReturnPct = r.TotalProfit.Div(cfg.StartCash).Mul(decimal.NewFromInt(100)).InexactFloat64()
	r.TotalTrades = len(r.Trades)
	r.Pairs = pairTrades(r.Trades)
	r.TradePairs = len(r.Pairs)
	for _, p := range r.Pairs {
		if p.PnL.IsPositive() {
			r.Wins++
		}
	}
	if r.TradePairs > 0 {
		wr := float64(r.Wins) / float64(r.TradePairs)
		r.WinRate = &wr
	}
	r.MDDPct = maxDrawdown(equity)

	log.Info().
		Int("tickers", len(series)).
		Int("trades", r.TotalTrades).
		Float64("return_pct", r.ReturnPct).
		Float64("mdd_pct", r.MDDPct).
		Msg("backtest finished")
	return r, nil
}

func replay(s Series, budget decimal.Decimal, stopPct float64, period int,
	cash decimal.Decimal, equity []decimal.Decimal, r *Result) (decimal.Decimal, []decimal.Decimal) {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}

	var (
		entry  float64
		shares int64
	)
	sell := func(i int, reason string) {
		price := closes[i]
		cash = cash.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(shares)))
		r.Trades = append(r.Trades, Trade{
			Ticker: s.Ticker, Action: ActionSell, Time: s.Bars[i].Time,
			Price: price, Shares: shares, Reason: reason, Cash: cash,
		})
		equity = append(equity, cash)
		entry, shares = 0, 0
	}

	for i := period; i < len(closes); i++ {
		price := closes[i]
		ma, err := calculator.CalculateSMA(closes[:i+1], period)
		if err != nil || math.IsNaN(price) || price <= 0 {
			continue
		}
		if shares == 0 {
			if price <= ma {
				continue
			}
			n := budget.Div(decimal.NewFromFloat(price)).IntPart()
			if n <= 0 {
				continue
			}
			entry, shares = price, n
			cash = cash.Sub(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(n)))
			r.Trades = append(r.Trades, Trade{
				Ticker: s.Ticker, Action: ActionBuy, Time: s.Bars[i].Time,
				Price: price, Shares: n, Cash: cash,
			})
			continue
		}
		switch {
		case price <= entry*(1-stopPct/100):
			sell(i, ExitStopLoss)
		case price < ma:
			sell(i, ExitMA200Break)
		}
	}
	if shares > 0 {
		sell(len(closes)-1, ExitEnd)
	}
	return cash, equity
}

func pairTrades(trades []Trade) []Pair {
	pairs := []Pair{}
	open := make(map[string]Trade)
	for _, t := range trades {
		switch t.Action {
		case ActionBuy:
			open[t.Ticker] = t
		case ActionSell:
			b, ok := open[t.Ticker]
			if !ok {
				continue
			}
			delete(open, t.Ticker)
			pnl := decimal.NewFromFloat(t.Price).Sub(decimal.NewFromFloat(b.Price)).Mul(decimal.NewFromInt(t.Shares))
			pairs = append(pairs, Pair{
				Ticker: t.Ticker, BuyPrice: b.Price, SellPrice: t.Price, Shares: t.Shares,
				PnL: pnl, Reason: t.Reason, Entry: b.Time, Exit: t.Time,
			})
		}
	}
	return pairs
}

// maxDrawdown returns the largest peak-to-trough fall in percent.
func maxDrawdown(points []decimal.Decimal) float64 {
	if len(points) == 0 {
		return 0
	}
	peak := points[0]
	maxDD := decimal.Zero
	for _, p := range points {
		if p.GreaterThan(peak) {
			peak = p
		}
		if !peak.IsPositive() {
			continue
		}
		if dd := peak.Sub(p).Div(peak); dd.GreaterThan(maxDD) {
			maxDD = dd
		}
	}
	return maxDD.Mul(decimal.NewFromInt(100)).InexactFloat64()
}
