package strategy

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AssetJudge/internal/model"
)

// sGradeSnapshot passes all five checks: PEG 24/20=1.2, revenue +12%,
// price above MA200, gap 8-2=6, RSI 55.
func sGradeSnapshot() model.Snapshot {
	return model.Snapshot{
		Ticker:         "NVDA",
		Price:          120,
		Open:           105,
		PrevOpen:       100,
		PrevHigh:       110,
		PrevLow:        95,
		PrevClose:      108,
		MA200:          100,
		RSI:            55,
		ForwardPE:      24,
		EarningsGrowth: 20,
		RevenueGrowth:  12,
		SectorReturn1M: 8,
		StockReturn1M:  2,
	}
}

func TestEvaluate_SGradeScenario(t *testing.T) {
	s := sGradeSnapshot()
	item, err := Evaluate(&s, model.DefaultSettings(), DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, model.GradeS, item.Grade)
	assert.Equal(t, model.ActionBuy, item.Action)
	require.NotNil(t, item.Filters)
	assert.True(t, item.Filters.AllPass())
	assert.InDelta(t, 1.2, item.UsedData.PEG, 1e-9)
	assert.InDelta(t, 6.0, item.UsedData.GapRatio, 1e-9)
	assert.InDelta(t, 101.5, item.UsedData.DemarkLow, 1e-9)
	assert.InDelta(t, 116.5, item.UsedData.DemarkHigh, 1e-9)
	assert.Zero(t, item.AllocationPercent)
}

func TestEvaluate_ReasonOrder(t *testing.T) {
	s := sGradeSnapshot()
	item, err := Evaluate(&s, model.DefaultSettings(), DefaultPolicy())
	require.NoError(t, err)

	require.Len(t, item.Reasons, 5)
	for i, prefix := range []string{"PEG pass", "Growth pass", "Trend pass", "Gap pass", "RSI pass"} {
		assert.True(t, strings.HasPrefix(item.Reasons[i], prefix), "reason %d = %q", i, item.Reasons[i])
	}
}

func TestEvaluate_DeMarkOverlay(t *testing.T) {
	tests := []struct {
		name   string
		open   float64
		reason string
	}{
		{"gap up", 120, ReasonGapUp},
		{"gap down", 100, ReasonGapDown},
		{"inside band", 105, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sGradeSnapshot()
			s.Open = tt.open
			item, err := Evaluate(&s, model.DefaultSettings(), DefaultPolicy())
			require.NoError(t, err)
			assert.Equal(t, model.GradeS, item.Grade, "overlay must not change the grade")
			if tt.reason == "" {
				assert.Len(t, item.Reasons, 5)
				return
			}
			require.Len(t, item.Reasons, 6)
			assert.Equal(t, tt.reason, item.Reasons[5])
		})
	}
}

func TestEvaluate_InvalidSnapshot(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Snapshot)
	}{
		{"nan rsi", func(s *model.Snapshot) { s.RSI = math.NaN() }},
		{"negative rsi", func(s *model.Snapshot) { s.RSI = -5 }},
		{"rsi above 100", func(s *model.Snapshot) { s.RSI = 100.5 }},
		{"missing price", func(s *model.Snapshot) { s.Price = 0 }},
		{"missing prev ohlc", func(s *model.Snapshot) { s.PrevOpen, s.PrevHigh, s.PrevLow, s.PrevClose = 0, 0, 0, 0 }},
		{"close above high", func(s *model.Snapshot) { s.PrevClose = 111 }},
		{"open below low", func(s *model.Snapshot) { s.PrevOpen = 94 }},
		{"infinite growth", func(s *model.Snapshot) { s.RevenueGrowth = math.Inf(1) }},
		{"empty ticker", func(s *model.Snapshot) { s.Ticker = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sGradeSnapshot()
			tt.mutate(&s)
			_, err := Evaluate(&s, model.DefaultSettings(), DefaultPolicy())
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrInvalidSnapshot)
		})
	}
}

func TestEvaluateFilters_PEGFailsWithoutRevenueGrowth(t *testing.T) {
	for _, growth := range []float64{0, -0.1, -5, -80} {
		for _, pe := range []float64{1, 5, 10, 24} {
			s := sGradeSnapshot()
			s.RevenueGrowth = growth
			s.ForwardPE = pe
			s.EarningsGrowth = 100
			f := EvaluateFilters(&s, model.DefaultSettings())
			assert.False(t, f.PEGPass, "revenue=%v pe=%v peg=%v", growth, pe, f.PEG)
		}
	}
}

func TestEvaluateFilters_PEG(t *testing.T) {
	tests := []struct {
		name           string
		pe, eg, growth float64
		pass           bool
	}{
		{"below threshold", 24, 20, 12, true},
		{"at threshold", 30, 20, 12, false},
		{"above threshold", 40, 20, 12, false},
		{"carve-out", 48, 20, 35, true},
		{"carve-out boundary growth", 48, 20, 30, true},
		{"carve-out limit", 60, 20, 35, false},
		{"no carve-out under 30%", 48, 20, 29.9, false},
		{"negative earnings growth", 24, -5, 12, false},
		{"negative pe", -10, 20, 12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sGradeSnapshot()
			s.ForwardPE, s.EarningsGrowth, s.RevenueGrowth = tt.pe, tt.eg, tt.growth
			f := EvaluateFilters(&s, model.DefaultSettings())
			assert.Equal(t, tt.pass, f.PEGPass)
		})
	}
}

func TestEvaluateFilters_Thresholds(t *testing.T) {
	st := model.DefaultSettings()
	s := sGradeSnapshot()

	s.Price = s.MA200
	assert.False(t, EvaluateFilters(&s, st).TrendPass)

	s = sGradeSnapshot()
	s.SectorReturn1M, s.StockReturn1M = 7, 2
	assert.False(t, EvaluateFilters(&s, st).GapPass, "gap equal to threshold fails")

	s = sGradeSnapshot()
	s.RSI = 70
	assert.False(t, EvaluateFilters(&s, st).RSIPass, "rsi equal to threshold fails")

	st.RSIThreshold = 80
	assert.True(t, EvaluateFilters(&s, st).RSIPass)
}

func TestGrade_Table(t *testing.T) {
	all := model.FilterResult{PEGPass: true, TrendPass: true, GapPass: true, RSIPass: true, GrowthPass: true}
	with := func(mut func(*model.FilterResult)) model.FilterResult {
		f := all
		mut(&f)
		return f
	}

	tests := []struct {
		name  string
		f     model.FilterResult
		grade model.Grade
	}{
		{"all pass", all, model.GradeS},
		{"trend gate", with(func(f *model.FilterResult) { f.TrendPass = false }), model.GradeF},
		{"growth gate", with(func(f *model.FilterResult) { f.GrowthPass = false }), model.GradeF},
		{"fundamentals, gap fails", with(func(f *model.FilterResult) { f.GapPass = false }), model.GradeA},
		{"fundamentals, gap and peg fail", with(func(f *model.FilterResult) { f.GapPass, f.PEGPass = false, false }), model.GradeA},
		{"technicals, peg fails", with(func(f *model.FilterResult) { f.PEGPass = false }), model.GradeA},
		{"only rsi fails", with(func(f *model.FilterResult) { f.RSIPass = false }), model.GradeF},
		{"nothing passes", model.FilterResult{}, model.GradeF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, a := Grade(tt.f, DefaultPolicy())
			assert.Equal(t, tt.grade, g)
			if g == model.GradeF {
				assert.Equal(t, model.ActionPass, a)
			} else {
				assert.Equal(t, model.ActionBuy, a)
			}
		})
	}
}

func TestGrade_TotalOverAllCombinations(t *testing.T) {
	for mask := 0; mask < 32; mask++ {
		f := model.FilterResult{
			PEGPass:    mask&1 != 0,
			TrendPass:  mask&2 != 0,
			GapPass:    mask&4 != 0,
			RSIPass:    mask&8 != 0,
			GrowthPass: mask&16 != 0,
		}
		g, _ := Grade(f, DefaultPolicy())
		assert.Contains(t, []model.Grade{model.GradeS, model.GradeA, model.GradeF}, g)
		assert.Equal(t, f.AllPass(), g == model.GradeS, "mask=%05b", mask)
		if !f.TrendPass || !f.GrowthPass {
			assert.Equal(t, model.GradeF, g, "mask=%05b", mask)
		}
	}
}

func TestGrade_CustomPolicy(t *testing.T) {
	f := model.FilterResult{TrendPass: true, GrowthPass: true, PEGPass: true, RSIPass: true}

	g, _ := Grade(f, GradePolicy{})
	assert.Equal(t, model.GradeF, g, "no A rules means no A grades")

	rsiOnly := GradePolicy{ARules: []ARule{{Name: "momentum", Require: []Check{CheckRSI}}}}
	g, _ = Grade(f, rsiOnly)
	assert.Equal(t, model.GradeA, g)
}

func TestGradePolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := GradePolicy{ARules: []ARule{
		{Require: []Check{"volume"}},
		{Require: []Check{CheckGap}, Fail: []Check{CheckGap}},
		{},
	}}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown check")
	assert.Contains(t, err.Error(), "both required and failed")
	assert.Contains(t, err.Error(), "empty rule")
}
