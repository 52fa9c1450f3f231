package calculator

import (
	"math"

	"AssetJudge/internal/model"
)

// DeMarkPivot projects today's support/resistance band from the previous
// session's OHLC. The base weights the side the candle closed toward:
//
//	close > open: (2H + L + C) / 4
//	close < open: (H + 2L + C) / 4
//	otherwise:    (H + L + 2C) / 4
//
// sellLimit = 2·base − L and buyLimit = 2·base − H, so the band is always
// exactly H − L wide whichever branch is taken. ok is false when any input
// is non-positive or not finite; a zero band must never be graded.
func DeMarkPivot(open, high, low, close float64) (band model.PivotBand, ok bool) {
	for _, v := range [...]float64{open, high, low, close} {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.PivotBand{}, false
		}
	}

	var base float64
	switch {
	case close > open:
		base = (2*high + low + close) / 4
	case close < open:
		base = (high + 2*low + close) / 4
	default:
		base = (high + low + 2*close) / 4
	}

	return model.PivotBand{
		Base:      base,
		SellLimit: 2*base - low,
		BuyLimit:  2*base - high,
	}, true
}

// PivotForSnapshot is DeMarkPivot over a snapshot's previous session.
func PivotForSnapshot(s *model.Snapshot) (model.PivotBand, bool) {
	return DeMarkPivot(s.PrevOpen, s.PrevHigh, s.PrevLow, s.PrevClose)
}
