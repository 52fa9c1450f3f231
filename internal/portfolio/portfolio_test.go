package portfolio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetJudge/internal/model"
)

func newManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "portfolio.json")
	m, err := NewManager(path, 1_000_000, "KRW")
	require.NoError(t, err)
	return m, path
}

func TestNewManager_FreshState(t *testing.T) {
	m, path := newManager(t)

	st := m.GetState()
	assert.Equal(t, 1_000_000.0, st.Equity)
	assert.Equal(t, "KRW", st.Currency)
	assert.Empty(t, st.Holdings)
	_, err := os.Stat(path)
	assert.NoError(t, err, "state file should be written on init")
}

func TestManager_UpsertAndReload(t *testing.T) {
	m, path := newManager(t)

	h, err := m.Upsert(model.Holding{Ticker: " nvda ", AvgPrice: 100, Quantity: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, h.ID)
	assert.Equal(t, "NVDA", h.Ticker)

	// Same ticker without ID replaces the position.
	h2, err := m.Upsert(model.Holding{Ticker: "NVDA", AvgPrice: 110, Quantity: 12})
	require.NoError(t, err)
	assert.Equal(t, h.ID, h2.ID)
	require.Len(t, m.Holdings(), 1)

	reloaded, err := NewManager(path, 0, "USD")
	require.NoError(t, err)
	st := reloaded.GetState()
	assert.Equal(t, "KRW", st.Currency, "persisted currency wins over seed")
	require.Len(t, st.Holdings, 1)
	assert.Equal(t, 110.0, st.Holdings[0].AvgPrice)
}

func TestManager_UpsertValidation(t *testing.T) {
	m, _ := newManager(t)

	_, err := m.Upsert(model.Holding{Ticker: "", AvgPrice: 1, Quantity: 1})
	assert.Error(t, err)
	_, err = m.Upsert(model.Holding{Ticker: "AAPL", AvgPrice: 0, Quantity: 1})
	assert.Error(t, err)
	_, err = m.Upsert(model.Holding{ID: "missing", Ticker: "AAPL", AvgPrice: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Remove(t *testing.T) {
	m, _ := newManager(t)
	h, err := m.Upsert(model.Holding{Ticker: "AAPL", AvgPrice: 150, Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, m.Remove(h.ID))
	assert.Empty(t, m.Holdings())
	assert.ErrorIs(t, m.Remove(h.ID), ErrNotFound)
}

func TestManager_MarkPricesAndSummary(t *testing.T) {
	m, _ := newManager(t)
	_, err := m.Upsert(model.Holding{Ticker: "AAPL", AvgPrice: 100, Quantity: 10})
	require.NoError(t, err)
	_, err = m.Upsert(model.Holding{Ticker: "MSFT", AvgPrice: 200, Quantity: 5})
	require.NoError(t, err)

	m.MarkPrices(map[string]float64{"AAPL": 120})
	s := m.Summary()

	assert.Equal(t, 2, s.Positions)
	assert.InDelta(t, 2000, s.Invested, 1e-9)
	assert.InDelta(t, 2200, s.Valuation, 1e-9)
	assert.InDelta(t, 200, s.PL, 1e-9)
	assert.InDelta(t, 10, s.PLPercent, 1e-9)
}

func TestManager_SetEquity(t *testing.T) {
	m, _ := newManager(t)
	require.NoError(t, m.SetEquity(5_000_000))
	assert.Equal(t, 5_000_000.0, m.Equity())
	assert.Error(t, m.SetEquity(-1))
}

func TestNewManager_KeepsPersistedZeroEquity(t *testing.T) {
	m, path := newManager(t)
	require.NoError(t, m.SetEquity(0))

	reloaded, err := NewManager(path, 1_000_000, "KRW")
	require.NoError(t, err)
	assert.Zero(t, reloaded.Equity())
}

func TestManager_FailedWriteLeavesStateUnchanged(t *testing.T) {
	m, _ := newManager(t)
	h, err := m.Upsert(model.Holding{Ticker: "AAPL", AvgPrice: 100, Quantity: 10})
	require.NoError(t, err)

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	m.filePath = filepath.Join(blocker, "portfolio.json")

	tests := []struct {
		name string
		op   func() error
	}{
		{"upsert new", func() error {
			_, err := m.Upsert(model.Holding{Ticker: "MSFT", AvgPrice: 200, Quantity: 1})
			return err
		}},
		{"upsert existing", func() error {
			_, err := m.Upsert(model.Holding{ID: h.ID, Ticker: "AAPL", AvgPrice: 90, Quantity: 99})
			return err
		}},
		{"remove", func() error { return m.Remove(h.ID) }},
		{"set equity", func() error { return m.SetEquity(42) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.op())
			assert.Equal(t, []model.Holding{h}, m.Holdings())
			assert.Equal(t, 1_000_000.0, m.Equity())
		})
	}

	m.MarkPrices(map[string]float64{"AAPL": 120})
	assert.Zero(t, m.Holdings()[0].CurrentPrice)
}

func item(ticker string, g model.Grade, a model.Action, price float64) model.GradedItem {
	return model.GradedItem{
		Ticker:   ticker,
		Grade:    g,
		Action:   a,
		Reasons:  []string{"base"},
		UsedData: model.UsedData{Price: price},
	}
}

func TestReview_EscalatesHeldFToSell(t *testing.T) {
	res := &model.ScanResult{
		Status: model.StatusActive,
		Items: []model.GradedItem{
			item("AAPL", model.GradeF, model.ActionPass, 150),
			item("MSFT", model.GradeF, model.ActionPass, 300),
			item("NVDA", model.GradeS, model.ActionBuy, 120),
		},
	}
	holdings := []model.Holding{{ID: "1", Ticker: "AAPL", AvgPrice: 140, Quantity: 1}}

	out, alerts := Review(res, holdings, model.DefaultSettings(), time.Now())

	assert.Equal(t, model.ActionSell, out.Items[0].Action)
	assert.Equal(t, []string{"base", ReasonHeldGradeF}, out.Items[0].Reasons)
	assert.Equal(t, model.ActionPass, out.Items[1].Action, "unheld F stays PASS")
	assert.Equal(t, model.ActionPass, res.Items[0].Action, "input must not change")
	assert.Equal(t, []string{"base"}, res.Items[0].Reasons)

	require.Len(t, alerts, 1)
	assert.Equal(t, model.BuyAlert, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "1 S-Grade")
}

func TestReview_NoEscalationWhenHalted(t *testing.T) {
	res := &model.ScanResult{
		Status: model.StatusHalted,
		Items:  []model.GradedItem{item("AAPL", model.GradeF, model.ActionPass, 150)},
	}
	holdings := []model.Holding{{Ticker: "AAPL", AvgPrice: 140, Quantity: 1}}

	out, alerts := Review(res, holdings, model.DefaultSettings(), time.Now())
	assert.Equal(t, model.ActionPass, out.Items[0].Action)
	assert.Empty(t, alerts)
}

func TestReview_StopLoss(t *testing.T) {
	res := &model.ScanResult{
		Status: model.StatusActive,
		Items:  []model.GradedItem{item("TSLA", model.GradeA, model.ActionBuy, 89)},
	}
	holdings := []model.Holding{
		{Ticker: "TSLA", AvgPrice: 100, Quantity: 1},
		{Ticker: "PLTR", AvgPrice: 50, Quantity: 1, CurrentPrice: 44},
		{Ticker: "AMZN", AvgPrice: 50, Quantity: 1, CurrentPrice: 46},
	}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, alerts := Review(res, holdings, model.DefaultSettings(), now)

	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, model.SellAlert, a.Type)
		assert.NotEmpty(t, a.ID)
		assert.Equal(t, now, a.Timestamp)
	}
	assert.Equal(t, "TSLA", alerts[0].Ticker)
	assert.Equal(t, "PLTR", alerts[1].Ticker)
}

func TestStopLossHit(t *testing.T) {
	assert.True(t, StopLossHit(100, 90, 10))
	assert.False(t, StopLossHit(100, 90.01, 10))
	assert.False(t, StopLossHit(0, 90, 10))
	assert.False(t, StopLossHit(100, 0, 10))
}
