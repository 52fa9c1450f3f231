package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IndexStatus is the day-over-day direction of a market index.
type IndexStatus string

const (
	IndexUp   IndexStatus = "UP"
	IndexDown IndexStatus = "DOWN"
	IndexFlat IndexStatus = "FLAT"
)

// MarketIndex is a display readout for a benchmark index (KOSPI, NASDAQ...).
type MarketIndex struct {
	Name          string      `json:"name"`
	Value         float64     `json:"value"`
	ChangePercent float64     `json:"changePercent"`
	Status        IndexStatus `json:"status"`
}
