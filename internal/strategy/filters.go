package strategy

import "AssetJudge/internal/model"

// The growth carve-out relaxes the PEG limit for fast-growing revenue.
const (
	carveOutRevenueGrowth = 30.0
	carveOutPEG           = 3.0
)

// EvaluateFilters runs the five Brain Filter checks against one snapshot.
// Each check is independent; the snapshot is expected to be validated.
func EvaluateFilters(s *model.Snapshot, st model.Settings) model.FilterResult {
	peg, pegValid := s.PEG()
	gap := s.Gap()

	pegPass := false
	if pegValid && s.RevenueGrowth > 0 {
		pegPass = peg < st.PEGThreshold ||
			(s.RevenueGrowth >= carveOutRevenueGrowth && peg < carveOutPEG)
	}

	return model.FilterResult{
		PEGPass:    pegPass,
		TrendPass:  s.Price > s.MA200,
		GapPass:    gap > st.GapThreshold,
		RSIPass:    s.RSI < st.RSIThreshold,
		GrowthPass: s.RevenueGrowth > 0,

		PEG:           peg,
		PEGValid:      pegValid,
		Price:         s.Price,
		MA200:         s.MA200,
		Gap:           gap,
		RSI:           s.RSI,
		RevenueGrowth: s.RevenueGrowth,
	}
}
