package model

import "time"

// Holding is one position in the locally held portfolio.
type Holding struct {
	ID           string  `json:"id"`
	Ticker       string  `json:"ticker" validate:"required"`
	AvgPrice     float64 `json:"avgPrice" validate:"gt=0"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	CurrentPrice float64 `json:"currentPrice,omitempty" validate:"gte=0"`
}

// MarkPrice returns the last known price, falling back to the cost basis.
func (h Holding) MarkPrice() float64 {
	if h.CurrentPrice > 0 {
		return h.CurrentPrice
	}
	return h.AvgPrice
}

// PortfolioState is the persisted portfolio.
type PortfolioState struct {
	Equity    float64   `json:"equity"`
	Currency  string    `json:"currency"`
	Holdings  []Holding `json:"holdings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PortfolioSummary is the valuation of the current holdings.
type PortfolioSummary struct {
	Invested  float64 `json:"invested"`
	Valuation float64 `json:"valuation"`
	PL        float64 `json:"pl"`
	PLPercent float64 `json:"plPercent"`
	Positions int     `json:"positions"`
}

// NotificationType classifies an alert.
type NotificationType string

const (
	BuyAlert  NotificationType = "BUY_ALERT"
	SellAlert NotificationType = "SELL_ALERT"
)

// Notification is an alert produced after a scan.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Ticker    string           `json:"ticker,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
