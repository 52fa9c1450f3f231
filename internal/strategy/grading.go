package strategy

import (
	"fmt"

	"AssetJudge/internal/model"
)

// DeMark overlay reasons.
const (
	ReasonGapUp   = "Gap Up / Overheated"
	ReasonGapDown = "Gap Down / Bargain"
)

// Grade classifies a filter result. Trend and growth gate first: failing
// either is F no matter what else passed. Every input maps to exactly one grade.
func Grade(f model.FilterResult, policy GradePolicy) (model.Grade, model.Action) {
	if !f.TrendPass || !f.GrowthPass {
		return model.GradeF, model.ActionPass
	}
	if f.AllPass() {
		return model.GradeS, model.ActionBuy
	}
	for _, r := range policy.ARules {
		if r.matches(f) {
			return model.GradeA, model.ActionBuy
		}
	}
	return model.GradeF, model.ActionPass
}

// DeMarkOverlay compares today's open against the projected band. It never
// changes the grade.
func DeMarkOverlay(open float64, band model.PivotBand) (string, bool) {
	switch {
	case open > band.SellLimit:
		return ReasonGapUp, true
	case open < band.BuyLimit:
		return ReasonGapDown, true
	}
	return "", false
}

// Reasons renders the five checks in the fixed order PEG, Growth, Trend,
// Gap, RSI, followed by the DeMark overlay when it applies.
func Reasons(s *model.Snapshot, f model.FilterResult, band model.PivotBand, st model.Settings) []string {
	reasons := []string{
		pegReason(f, st),
		checkReason("Growth", f.GrowthPass, fmt.Sprintf("revenue %+.1f%% %s 0%%", f.RevenueGrowth, cmp(f.GrowthPass, ">", "<="))),
		checkReason("Trend", f.TrendPass, fmt.Sprintf("price %.2f %s MA200 %.2f", f.Price, cmp(f.TrendPass, ">", "<="), f.MA200)),
		checkReason("Gap", f.GapPass, fmt.Sprintf("%.1f%% %s %.1f%%", f.Gap, cmp(f.GapPass, ">", "<="), st.GapThreshold)),
		checkReason("RSI", f.RSIPass, fmt.Sprintf("%.1f %s %.1f", f.RSI, cmp(f.RSIPass, "<", ">="), st.RSIThreshold)),
	}
	if overlay, ok := DeMarkOverlay(s.Open, band); ok {
		reasons = append(reasons, overlay)
	}
	return reasons
}

func pegReason(f model.FilterResult, st model.Settings) string {
	switch {
	case !f.PEGValid:
		return checkReason("PEG", false, "undefined (P/E or earnings growth <= 0)")
	case f.RevenueGrowth <= 0:
		return checkReason("PEG", false, fmt.Sprintf("%.2f ignored while revenue growth <= 0", f.PEG))
	case f.PEG < st.PEGThreshold:
		return checkReason("PEG", true, fmt.Sprintf("%.2f < %.2f", f.PEG, st.PEGThreshold))
	case f.PEGPass:
		return checkReason("PEG", true, fmt.Sprintf("%.2f < %.2f (revenue growth %.1f%% >= %.0f%%)",
			f.PEG, carveOutPEG, f.RevenueGrowth, carveOutRevenueGrowth))
	}
	return checkReason("PEG", false, fmt.Sprintf("%.2f >= %.2f", f.PEG, st.PEGThreshold))
}

func checkReason(name string, pass bool, detail string) string {
	return fmt.Sprintf("%s %s: %s", name, cmp(pass, "pass", "fail"), detail)
}

func cmp(pass bool, yes, no string) string {
	if pass {
		return yes
	}
	return no
}
