package strategy

import (
	"fmt"

	"AssetJudge/internal/calculator"
	"AssetJudge/internal/model"
)

// Evaluate validates one snapshot, projects its pivot band, runs the Brain
// Filter and grades it. Allocation is left at zero for the planner. An
// invalid snapshot returns an error wrapping model.ErrInvalidSnapshot and
// must be excluded, never graded.
func Evaluate(s *model.Snapshot, st model.Settings, policy GradePolicy) (model.GradedItem, error) {
	band, err := Prepare(s)
	if err != nil {
		return model.GradedItem{}, err
	}

	f := EvaluateFilters(s, st)
	grade, action := Grade(f, policy)

	return model.GradedItem{
		Ticker:   s.Ticker,
		Name:     s.Name,
		Grade:    grade,
		Action:   action,
		Reasons:  Reasons(s, f, band, st),
		UsedData: NewUsedData(s, band),
		Filters:  &f,
		Pivot:    band,
	}, nil
}

// Prepare validates a snapshot and returns its pivot band.
func Prepare(s *model.Snapshot) (model.PivotBand, error) {
	if err := s.Validate(); err != nil {
		return model.PivotBand{}, err
	}
	band, ok := calculator.PivotForSnapshot(s)
	if !ok {
		return model.PivotBand{}, fmt.Errorf("%w: %s has no usable previous session", model.ErrInvalidSnapshot, s.Ticker)
	}
	return band, nil
}

// NewUsedData copies the display fields out of a snapshot and band.
func NewUsedData(s *model.Snapshot, band model.PivotBand) model.UsedData {
	peg, _ := s.PEG()
	return model.UsedData{
		Price:         s.Price,
		OpenPrice:     s.Open,
		PrevClose:     s.PrevClose,
		MA200:         s.MA200,
		RSI:           s.RSI,
		PEG:           peg,
		RevenueGrowth: s.RevenueGrowth,
		GapRatio:      s.Gap(),
		DemarkLow:     band.BuyLimit,
		DemarkHigh:    band.SellLimit,
	}
}
