package collector

import (
	"context"
	"time"

	"AssetJudge/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Bars and Funds are keyed by symbol; unknown symbols get a gently rising
// series around Price.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.OHLCV
	Funds map[string]Fundamentals
	Err   error
}

// NewMockFetcher returns a MockFetcher whose VIX sits at a calm 18.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Price: 100,
		Bars:  map[string][]model.OHLCV{VIXSymbol: generateMockBars(18, 5)},
	}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockFetcher) FetchFundamentals(_ context.Context, symbol string) (Fundamentals, error) {
	if m.Err != nil {
		return Fundamentals{}, m.Err
	}
	if f, ok := m.Funds[symbol]; ok {
		return f, nil
	}
	return Fundamentals{Name: symbol, ForwardPE: 24, EarningsGrowth: 20, RevenueGrowth: 12}, nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
