package model

// Settings are the user-tunable thresholds read by every scan.
type Settings struct {
	VIXThreshold       float64 `json:"vixThreshold" yaml:"vix_threshold" validate:"gt=0,lte=100"`
	PEGThreshold       float64 `json:"pegThreshold" yaml:"peg_threshold" validate:"gt=0,lte=10"`
	RSIThreshold       float64 `json:"rsiThreshold" yaml:"rsi_threshold" validate:"gt=0,lte=100"`
	GapThreshold       float64 `json:"gapThreshold" yaml:"gap_threshold" validate:"gte=-100,lte=100"`
	StopLossPercent    float64 `json:"stopLossPercent" yaml:"stop_loss_percent" validate:"gt=0,lt=100"`
	CashReservePercent float64 `json:"cashReservePercent" yaml:"cash_reserve_percent" validate:"gte=0,lt=100"`
}

// DefaultSettings returns the out-of-the-box thresholds.
func DefaultSettings() Settings {
	return Settings{
		VIXThreshold:       30,
		PEGThreshold:       1.5,
		RSIThreshold:       70,
		GapThreshold:       5,
		StopLossPercent:    10,
		CashReservePercent: 0,
	}
}
