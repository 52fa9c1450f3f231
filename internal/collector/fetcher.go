package collector

import (
	"context"

	"AssetJudge/internal/model"
)

// Fundamentals are the valuation inputs for one ticker. Growth figures are
// percentages (12 means +12%).
type Fundamentals struct {
	Name           string  `json:"name,omitempty"`
	ForwardPE      float64 `json:"forwardPE"`
	EarningsGrowth float64 `json:"earningsGrowth"`
	RevenueGrowth  float64 `json:"revenueGrowth"`
}

// Fetcher defines the interface for fetching market data. Implementations
// return an error wrapping ErrQuotaExceeded when the upstream rate limits
// and ErrUpstream for malformed or missing data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	FetchFundamentals(ctx context.Context, symbol string) (Fundamentals, error)
	Name() string
}
