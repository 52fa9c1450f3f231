package calculator

import (
	"errors"

	"AssetJudge/internal/model"
)

// TradingDaysPerMonth approximates one calendar month of sessions.
const TradingDaysPerMonth = 21

// CalculateReturn returns the percentage change of the close over the last
// `sessions` bars.
func CalculateReturn(bars []model.OHLCV, sessions int) (float64, error) {
	if sessions <= 0 {
		return 0, errors.New("sessions must be positive")
	}
	if len(bars) < sessions+1 {
		return 0, errors.New("not enough data for return calculation")
	}
	last := bars[len(bars)-1].Close
	base := bars[len(bars)-1-sessions].Close
	if base == 0 {
		return 0, errors.New("base close is zero")
	}
	return (last/base - 1) * 100, nil
}

// CalculateMonthReturn is CalculateReturn over TradingDaysPerMonth.
func CalculateMonthReturn(bars []model.OHLCV) (float64, error) {
	return CalculateReturn(bars, TradingDaysPerMonth)
}

// IndexReadout summarizes the last two bars of an index as a display readout.
func IndexReadout(name string, bars []model.OHLCV) (model.MarketIndex, error) {
	if len(bars) < 2 {
		return model.MarketIndex{}, errors.New("not enough data for index readout")
	}
	last := bars[len(bars)-1].Close
	prev := bars[len(bars)-2].Close
	if prev == 0 {
		return model.MarketIndex{}, errors.New("previous close is zero")
	}
	change := (last/prev - 1) * 100

	status := model.IndexFlat
	switch {
	case change > 0.005:
		status = model.IndexUp
	case change < -0.005:
		status = model.IndexDown
	}
	return model.MarketIndex{Name: name, Value: last, ChangePercent: change, Status: status}, nil
}
