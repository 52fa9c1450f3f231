package portfolio

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"AssetJudge/internal/model"
)

// ReasonHeldGradeF is appended to a held ticker escalated to SELL.
const ReasonHeldGradeF = "Held position graded F: exit"

// Review applies the holder-side rules to a finished scan and returns an
// updated copy of the result plus the alerts it raised:
//   - a held ticker graded F in an Active scan is escalated from PASS to SELL;
//   - a holding whose price is StopLossPercent or more below its average
//     price raises a SELL_ALERT;
//   - any S grade raises one BUY_ALERT.
//
// The input result is not modified.
func Review(res *model.ScanResult, holdings []model.Holding, st model.Settings, now time.Time) (*model.ScanResult, []model.Notification) {
	if res == nil {
		return nil, nil
	}
	out := *res
	out.Items = append([]model.GradedItem(nil), res.Items...)

	held := make(map[string]bool, len(holdings))
	for _, h := range holdings {
		held[h.Ticker] = true
	}
	prices := make(map[string]float64, len(out.Items))
	for _, it := range out.Items {
		prices[it.Ticker] = it.UsedData.Price
	}

	var alerts []model.Notification

	if out.Status == model.StatusActive {
		for i, it := range out.Items {
			if !held[it.Ticker] || it.Grade != model.GradeF || it.Action == model.ActionSell {
				continue
			}
			it.Action = model.ActionSell
			it.Reasons = append(append([]string(nil), it.Reasons...), ReasonHeldGradeF)
			out.Items[i] = it
		}
	}

	for _, h := range holdings {
		price := h.MarkPrice()
		if p, ok := prices[h.Ticker]; ok && p > 0 {
			price = p
		}
		if !StopLossHit(h.AvgPrice, price, st.StopLossPercent) {
			continue
		}
		drop := (price - h.AvgPrice) / h.AvgPrice * 100
		alerts = append(alerts, model.Notification{
			ID:        uuid.NewString(),
			Type:      model.SellAlert,
			Title:     "Stop-Loss Triggered",
			Message:   fmt.Sprintf("%s is %.1f%% from its average price %.2f (now %.2f).", h.Ticker, drop, h.AvgPrice, price),
			Ticker:    h.Ticker,
			Timestamp: now,
		})
	}

	if n := out.CountGrade(model.GradeS); n > 0 {
		alerts = append(alerts, model.Notification{
			ID:        uuid.NewString(),
			Type:      model.BuyAlert,
			Title:     "S-Class Opportunity",
			Message:   fmt.Sprintf("Found %d S-Grade stocks!", n),
			Timestamp: now,
		})
	}

	return &out, alerts
}

// StopLossHit reports whether price has fallen at least stopLossPercent
// below avgPrice.
func StopLossHit(avgPrice, price, stopLossPercent float64) bool {
	if avgPrice <= 0 || price <= 0 || stopLossPercent <= 0 {
		return false
	}
	return price <= avgPrice*(1-stopLossPercent/100)
}
