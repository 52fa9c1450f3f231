// Package scanner runs one market scan: Shield filter, per-ticker grading and
// allocation.
package scanner

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"AssetJudge/internal/fund"
	"AssetJudge/internal/metrics"
	"AssetJudge/internal/model"
	"AssetJudge/internal/strategy"
)

// Input is one fully-resolved batch. FetchErr carries the outcome of the
// upstream fetch that produced it; a non-nil FetchErr aborts the scan.
type Input struct {
	VIX       float64
	Equity    float64
	Settings  model.Settings
	Snapshots []model.Snapshot
	Indices   []model.MarketIndex
	// Excluded carries tickers already dropped during collection.
	Excluded  []model.ExcludedTicker
	FetchErr  error
}

// Orchestrator holds the scan-invariant configuration. It keeps no state
// between runs.
type Orchestrator struct {
	Policy       strategy.GradePolicy
	Currency     string
	AmountPlaces int32
	Metrics      *metrics.Registry
	Now          func() time.Time
}

// New creates an Orchestrator with the default grade policy.
func New(currency string, amountPlaces int32, m *metrics.Registry) *Orchestrator {
	return &Orchestrator{
		Policy:       strategy.DefaultPolicy(),
		Currency:     currency,
		AmountPlaces: amountPlaces,
		Metrics:      m,
		Now:          time.Now,
	}
}

// Run executes the scan. It never returns a partially graded batch: batch
// level failures yield an empty item list with an Error or QuotaExceeded
// status, while invalid snapshots are dropped individually and listed in
// Excluded.
func (o *Orchestrator) Run(in Input) *model.ScanResult {
	start := time.Now()
	res := o.run(in)
	res.ScannedAt = o.now()
	o.Metrics.ObserveScan(res, time.Since(start))

	log.Info().
		Str("status", string(res.Status)).
		Float64("vix", res.VIXUsed).
		Int("graded", len(res.Items)).
		Int("excluded", len(res.Excluded)).
		Int("s", res.CountGrade(model.GradeS)).
		Int("a", res.CountGrade(model.GradeA)).
		Msg("scan finished")
	return res
}

func (o *Orchestrator) run(in Input) *model.ScanResult {
	if in.FetchErr != nil {
		if errors.Is(in.FetchErr, model.ErrQuotaExceeded) {
			return o.failed(model.StatusQuotaExceeded, in.VIX, in.FetchErr.Error())
		}
		return o.failed(model.StatusError, in.VIX, in.FetchErr.Error())
	}
	if len(in.Snapshots) == 0 {
		return o.failed(model.StatusError, in.VIX, "no market data")
	}
	if !finite(in.VIX) || in.VIX < 0 {
		return o.failed(model.StatusError, in.VIX, "missing or invalid VIX reading")
	}
	if !finite(in.Equity) || in.Equity < 0 {
		return o.failed(model.StatusError, in.VIX, "invalid equity")
	}

	planner := fund.Planner{
		ReservePercent: in.Settings.CashReservePercent,
		Currency:       o.Currency,
		AmountPlaces:   o.AmountPlaces,
	}
	res := &model.ScanResult{
		VIXUsed:  in.VIX,
		Indices:  in.Indices,
		Excluded: append([]model.ExcludedTicker(nil), in.Excluded...),
	}

	if in.VIX >= in.Settings.VIXThreshold {
		res.Status = model.StatusHalted
		res.Message = fmt.Sprintf("Shield: VIX %.1f >= %.1f, trading halted", in.VIX, in.Settings.VIXThreshold)
		items := make([]model.GradedItem, 0, len(in.Snapshots))
		for i := range in.Snapshots {
			s := &in.Snapshots[i]
			band, err := strategy.Prepare(s)
			if err != nil {
				res.Excluded = append(res.Excluded, exclude(s, err))
				continue
			}
			items = append(items, model.GradedItem{
				Ticker:   s.Ticker,
				Name:     s.Name,
				Grade:    model.GradeF,
				Action:   model.ActionPass,
				Reasons:  []string{res.Message},
				UsedData: strategy.NewUsedData(s, band),
				Pivot:    band,
			})
		}
		res.Items = planner.Zero(items)
		res.Cash = 1
		return res
	}

	res.Status = model.StatusActive
	items := make([]model.GradedItem, 0, len(in.Snapshots))
	for i := range in.Snapshots {
		s := &in.Snapshots[i]
		item, err := strategy.Evaluate(s, in.Settings, o.Policy)
		if err != nil {
			res.Excluded = append(res.Excluded, exclude(s, err))
			continue
		}
		items = append(items, item)
	}

	plan, err := planner.Plan(items, in.Equity)
	if err != nil {
		return o.failed(model.StatusError, in.VIX, fmt.Sprintf("allocation: %v", err))
	}
	res.Items = plan.Items
	res.Cash = plan.Cash.InexactFloat64()
	if plan.Scaled {
		res.Message = fmt.Sprintf("allocations scaled to %s%% of equity", plan.Allocated().Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	return res
}

func (o *Orchestrator) failed(status model.ScanStatus, vix float64, msg string) *model.ScanResult {
	log.Warn().Str("status", string(status)).Str("reason", msg).Msg("scan aborted")
	if !finite(vix) {
		vix = 0
	}
	return &model.ScanResult{
		Status:  status,
		VIXUsed: vix,
		Indices: []model.MarketIndex{},
		Items:   []model.GradedItem{},
		Message: msg,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

func exclude(s *model.Snapshot, err error) model.ExcludedTicker {
	log.Warn().Str("ticker", s.Ticker).Err(err).Msg("snapshot excluded")
	return model.ExcludedTicker{Ticker: s.Ticker, Reason: err.Error()}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
