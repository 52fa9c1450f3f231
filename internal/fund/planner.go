// Package fund sizes capital across graded tickers.
package fund

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"AssetJudge/internal/model"
)

// Fixed per-grade fractions of equity.
var (
	FractionS = decimal.RequireFromString("0.30")
	FractionA = decimal.RequireFromString("0.10")
)

// fractionPlaces bounds the precision of scaled fractions. Truncating (not
// rounding) keeps the scaled sum at or below the cap.
const fractionPlaces = 8

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Planner turns graded items into allocations.
type Planner struct {
	// ReservePercent of equity is always left in cash (0-100).
	ReservePercent float64
	// Currency labels recommended amounts, e.g. "KRW".
	Currency string
	// AmountPlaces is the currency's minor-unit precision (0 for KRW, 2 for USD).
	AmountPlaces int32
}

// Plan is the allocation outcome for one scan.
type Plan struct {
	Items  []model.GradedItem
	Cash   decimal.Decimal
	Scaled bool
}

// Allocated returns the sum of all allocation fractions.
func (p Plan) Allocated() decimal.Decimal {
	return one.Sub(p.Cash)
}

// Plan assigns allocation fractions and amounts. S-grade BUYs get 30% and
// A-grade BUYs 10% of equity; everything else gets nothing. When the fixed
// fractions would exceed 100% minus the reserve, all non-zero allocations
// are scaled down by the same factor so they sum to exactly the cap. The
// input slice is not modified.
func (p Planner) Plan(items []model.GradedItem, equity float64) (Plan, error) {
	if math.IsNaN(equity) || math.IsInf(equity, 0) || equity < 0 {
		return Plan{}, fmt.Errorf("equity must be a non-negative number, got %v", equity)
	}
	if p.ReservePercent < 0 || p.ReservePercent >= 100 || math.IsNaN(p.ReservePercent) {
		return Plan{}, errors.New("reserve percent must be in [0, 100)")
	}

	limit := one.Sub(decimal.NewFromFloat(p.ReservePercent).Div(hundred))
	eq := decimal.NewFromFloat(equity)

	fractions := make([]decimal.Decimal, len(items))
	naive := decimal.Zero
	for i, it := range items {
		fractions[i] = BaseFraction(it)
		naive = naive.Add(fractions[i])
	}

	scaled := naive.GreaterThan(limit)
	if scaled {
		for i, f := range fractions {
			if f.IsZero() {
				continue
			}
			fractions[i] = f.Mul(limit).Div(naive).Truncate(fractionPlaces)
		}
	}

	out := make([]model.GradedItem, len(items))
	allocated := decimal.Zero
	for i, it := range items {
		f := fractions[i]
		allocated = allocated.Add(f)
		it.AllocationPercent = f.InexactFloat64()
		it.RecommendedAmount = f.Mul(eq).Truncate(p.AmountPlaces)
		it.Currency = p.Currency
		out[i] = it
	}

	return Plan{Items: out, Cash: one.Sub(allocated), Scaled: scaled}, nil
}

// BaseFraction is the unscaled fraction an item is entitled to.
func BaseFraction(it model.GradedItem) decimal.Decimal {
	if it.Action != model.ActionBuy {
		return decimal.Zero
	}
	switch it.Grade {
	case model.GradeS:
		return FractionS
	case model.GradeA:
		return FractionA
	}
	return decimal.Zero
}

// Zero returns copies of items with all allocations cleared.
func (p Planner) Zero(items []model.GradedItem) []model.GradedItem {
	out := make([]model.GradedItem, len(items))
	for i, it := range items {
		it.AllocationPercent = 0
		it.RecommendedAmount = decimal.Zero
		it.Currency = p.Currency
		out[i] = it
	}
	return out
}
