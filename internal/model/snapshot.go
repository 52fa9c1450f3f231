package model

import (
	"fmt"
	"math"
	"time"
)

// Snapshot is the point-in-time market data for one ticker. All percentages
// are in percent units (12 means +12%).
type Snapshot struct {
	Ticker string    `json:"ticker" validate:"required"`
	Name   string    `json:"name,omitempty"`
	AsOf   time.Time `json:"asOf"`

	Price float64 `json:"price" validate:"gt=0"`
	Open  float64 `json:"open" validate:"gt=0"`

	PrevOpen  float64 `json:"prevOpen" validate:"gt=0"`
	PrevHigh  float64 `json:"prevHigh" validate:"gt=0"`
	PrevLow   float64 `json:"prevLow" validate:"gt=0"`
	PrevClose float64 `json:"prevClose" validate:"gt=0"`

	MA200 float64 `json:"ma200" validate:"gt=0"`
	RSI   float64 `json:"rsi" validate:"gte=0,lte=100"`

	ForwardPE      float64 `json:"forwardPE"`
	EarningsGrowth float64 `json:"earningsGrowth"`
	RevenueGrowth  float64 `json:"revenueGrowth"`

	SectorReturn1M float64 `json:"sectorReturn1M"`
	StockReturn1M  float64 `json:"stockReturn1M"`
}

// Validate checks the invariants the grading pipeline relies on. The struct
// tags carry the same range rules for strict request validation.
func (s *Snapshot) Validate() error {
	if s.Ticker == "" {
		return fmt.Errorf("%w: empty ticker", ErrInvalidSnapshot)
	}
	fields := []struct {
		name string
		v    float64
	}{
		{"price", s.Price},
		{"open", s.Open},
		{"prevOpen", s.PrevOpen},
		{"prevHigh", s.PrevHigh},
		{"prevLow", s.PrevLow},
		{"prevClose", s.PrevClose},
		{"ma200", s.MA200},
		{"rsi", s.RSI},
		{"forwardPE", s.ForwardPE},
		{"earningsGrowth", s.EarningsGrowth},
		{"revenueGrowth", s.RevenueGrowth},
		{"sectorReturn1M", s.SectorReturn1M},
		{"stockReturn1M", s.StockReturn1M},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s %s is not finite", ErrInvalidSnapshot, s.Ticker, f.name)
		}
	}
	for _, f := range fields[:7] {
		if f.v <= 0 {
			return fmt.Errorf("%w: %s %s must be positive, got %v", ErrInvalidSnapshot, s.Ticker, f.name, f.v)
		}
	}
	if s.RSI < 0 || s.RSI > 100 {
		return fmt.Errorf("%w: %s rsi %.2f out of range", ErrInvalidSnapshot, s.Ticker, s.RSI)
	}
	lo, hi := s.PrevLow, s.PrevHigh
	if s.PrevOpen < lo || s.PrevOpen > hi || s.PrevClose < lo || s.PrevClose > hi {
		return fmt.Errorf("%w: %s previous OHLC out of order (o=%v h=%v l=%v c=%v)",
			ErrInvalidSnapshot, s.Ticker, s.PrevOpen, s.PrevHigh, s.PrevLow, s.PrevClose)
	}
	return nil
}

// PEG returns forward P/E divided by the earnings-growth percentage. ok is
// false when either input is non-positive, in which case PEG is undefined.
func (s *Snapshot) PEG() (peg float64, ok bool) {
	if s.ForwardPE <= 0 || s.EarningsGrowth <= 0 {
		return 0, false
	}
	peg = s.ForwardPE / s.EarningsGrowth
	if math.IsNaN(peg) || math.IsInf(peg, 0) {
		return 0, false
	}
	return peg, true
}

// Gap is the sector's 1-month return minus the stock's.
func (s *Snapshot) Gap() float64 {
	return s.SectorReturn1M - s.StockReturn1M
}
