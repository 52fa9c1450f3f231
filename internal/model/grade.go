package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Grade is the quality tier assigned to a ticker.
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeF Grade = "F"
)

// Action is the recommended trade direction.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionPass Action = "PASS"
)

// PivotBand is the DeMark projection for today derived from the previous session.
type PivotBand struct {
	Base      float64 `json:"base"`
	BuyLimit  float64 `json:"buyLimit"`
	SellLimit float64 `json:"sellLimit"`
}

// FilterResult holds the five Brain Filter outcomes and the values behind them.
type FilterResult struct {
	PEGPass    bool `json:"pegPass"`
	TrendPass  bool `json:"trendPass"`
	GapPass    bool `json:"gapPass"`
	RSIPass    bool `json:"rsiPass"`
	GrowthPass bool `json:"growthPass"`

	PEG           float64 `json:"peg"`
	PEGValid      bool    `json:"pegValid"`
	Price         float64 `json:"price"`
	MA200         float64 `json:"ma200"`
	Gap           float64 `json:"gap"`
	RSI           float64 `json:"rsi"`
	RevenueGrowth float64 `json:"revenueGrowth"`
}

// AllPass reports whether every check passed.
func (f FilterResult) AllPass() bool {
	return f.PEGPass && f.TrendPass && f.GapPass && f.RSIPass && f.GrowthPass
}

// UsedData is the display copy of the inputs a grade was computed from.
type UsedData struct {
	Price         float64 `json:"price"`
	OpenPrice     float64 `json:"openPrice"`
	PrevClose     float64 `json:"prevClose"`
	MA200         float64 `json:"ma200"`
	RSI           float64 `json:"rsi"`
	PEG           float64 `json:"peg"`
	RevenueGrowth float64 `json:"revenueGrowth"`
	GapRatio      float64 `json:"gapRatio"`
	DemarkLow     float64 `json:"demarkLow"`
	DemarkHigh    float64 `json:"demarkHigh"`
}

// GradedItem is the per-ticker output of a scan.
type GradedItem struct {
	Ticker            string          `json:"ticker"`
	Name              string          `json:"name,omitempty"`
	Grade             Grade           `json:"grade"`
	Action            Action          `json:"action"`
	Reasons           []string        `json:"reasons"`
	AllocationPercent float64         `json:"allocation_percent"`
	RecommendedAmount decimal.Decimal `json:"recommended_amount"`
	Currency          string          `json:"currency,omitempty"`
	UsedData          UsedData        `json:"used_data"`
	Filters           *FilterResult   `json:"filters,omitempty"`
	Pivot             PivotBand       `json:"pivot"`
}

// ScanStatus is the market status reported with every scan.
type ScanStatus string

const (
	StatusActive        ScanStatus = "Active"
	StatusHalted        ScanStatus = "Halted"
	StatusError         ScanStatus = "Error"
	StatusQuotaExceeded ScanStatus = "QuotaExceeded"
)

// ExcludedTicker records a snapshot that was dropped before grading.
type ExcludedTicker struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// ScanResult is the full payload handed to the presentation layer.
type ScanResult struct {
	Status    ScanStatus       `json:"market_status"`
	VIXUsed   float64          `json:"vix_used"`
	Indices   []MarketIndex    `json:"market_indices"`
	Items     []GradedItem     `json:"analysis_result"`
	Excluded  []ExcludedTicker `json:"excluded,omitempty"`
	Cash      float64          `json:"cash_percent"`
	Message   string           `json:"message,omitempty"`
	ScannedAt time.Time        `json:"scanned_at"`
}

// CountGrade returns how many items carry the given grade.
func (r *ScanResult) CountGrade(g Grade) int {
	n := 0
	for _, it := range r.Items {
		if it.Grade == g {
			n++
		}
	}
	return n
}
