package notifier

import (
	"fmt"
	"html"
	"strings"

	"AssetJudge/internal/model"
)

var statusIcon = map[model.ScanStatus]string{
	model.StatusActive:        "🟢",
	model.StatusHalted:        "🛡",
	model.StatusError:         "❌",
	model.StatusQuotaExceeded: "⏳",
}

var indexIcon = map[model.IndexStatus]string{
	model.IndexUp:   "▲",
	model.IndexDown: "▼",
	model.IndexFlat: "■",
}

// FormatScanReport formats a scan result into a Telegram message. Only S and
// A grades and SELL escalations are listed individually.
func FormatScanReport(res *model.ScanResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s <b>AssetJudge Daily Scan</b> | %s\n", statusIcon[res.Status], res.ScannedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Market: <b>%s</b> | VIX %.2f\n", res.Status, res.VIXUsed)
	if res.Message != "" {
		fmt.Fprintf(&b, "<i>%s</i>\n", html.EscapeString(res.Message))
	}

	if len(res.Indices) > 0 {
		b.WriteString("\n")
		for _, idx := range res.Indices {
			fmt.Fprintf(&b, "%s %s %.2f (%+.2f%%)\n", indexIcon[idx.Status], html.EscapeString(idx.Name), idx.Value, idx.ChangePercent)
		}
	}

	if res.Status != model.StatusActive && res.Status != model.StatusHalted {
		return b.String()
	}

	fmt.Fprintf(&b, "\nS: %d | A: %d | F: %d\n", res.CountGrade(model.GradeS), res.CountGrade(model.GradeA), res.CountGrade(model.GradeF))

	for _, it := range res.Items {
		if it.Grade == model.GradeF && it.Action != model.ActionSell {
			continue
		}
		b.WriteString("\n")
		b.WriteString(FormatItem(it))
	}

	if len(res.Excluded) > 0 {
		tickers := make([]string, len(res.Excluded))
		for i, e := range res.Excluded {
			tickers[i] = e.Ticker
		}
		fmt.Fprintf(&b, "\n⚠️ Excluded: %s\n", html.EscapeString(strings.Join(tickers, ", ")))
	}
	fmt.Fprintf(&b, "\n💵 Cash: %.1f%%\n", res.Cash*100)
	return b.String()
}

// FormatItem formats one graded ticker.
func FormatItem(it model.GradedItem) string {
	var b strings.Builder
	name := it.Ticker
	if it.Name != "" {
		name = fmt.Sprintf("%s (%s)", it.Ticker, it.Name)
	}
	fmt.Fprintf(&b, "<b>[%s] %s</b> → %s\n", it.Grade, html.EscapeString(name), it.Action)
	if it.AllocationPercent > 0 {
		fmt.Fprintf(&b, "  Allocate %.1f%% = %s %s\n", it.AllocationPercent*100, it.RecommendedAmount.StringFixed(0), it.Currency)
	}
	d := it.UsedData
	fmt.Fprintf(&b, "  Price %.2f | MA200 %.2f | RSI %.1f | PEG %.2f\n", d.Price, d.MA200, d.RSI, d.PEG)
	fmt.Fprintf(&b, "  DeMark buy %.2f / sell %.2f\n", d.DemarkLow, d.DemarkHigh)
	for _, r := range it.Reasons {
		fmt.Fprintf(&b, "  • %s\n", html.EscapeString(r))
	}
	return b.String()
}

// FormatNotification formats an alert.
func FormatNotification(n model.Notification) string {
	icon := "🔔"
	switch n.Type {
	case model.BuyAlert:
		icon = "🚀"
	case model.SellAlert:
		icon = "🚨"
	}
	return fmt.Sprintf("%s <b>%s</b>\n%s", icon, html.EscapeString(n.Title), html.EscapeString(n.Message))
}

// FormatPortfolio formats holdings and their valuation.
func FormatPortfolio(state model.PortfolioState, sum model.PortfolioSummary) string {
	var b strings.Builder
	b.WriteString("📦 <b>Portfolio</b>\n\n")
	fmt.Fprintf(&b, "Equity: %.0f %s\n", state.Equity, state.Currency)
	if len(state.Holdings) == 0 {
		b.WriteString("No holdings.\n")
		return b.String()
	}
	for _, h := range state.Holdings {
		pl := 0.0
		if h.AvgPrice > 0 {
			pl = (h.MarkPrice()/h.AvgPrice - 1) * 100
		}
		fmt.Fprintf(&b, "%s x%g @ %.2f → %.2f (%+.1f%%)\n", html.EscapeString(h.Ticker), h.Quantity, h.AvgPrice, h.MarkPrice(), pl)
	}
	fmt.Fprintf(&b, "\nInvested: %.2f\nValuation: %.2f\nP/L: %+.2f (%+.2f%%)\n", sum.Invested, sum.Valuation, sum.PL, sum.PLPercent)
	return b.String()
}

// FormatSettings formats the current thresholds.
func FormatSettings(st model.Settings) string {
	var b strings.Builder
	b.WriteString("⚙️ <b>Settings</b>\n\n")
	fmt.Fprintf(&b, "vixThreshold: %g\n", st.VIXThreshold)
	fmt.Fprintf(&b, "pegThreshold: %g\n", st.PEGThreshold)
	fmt.Fprintf(&b, "rsiThreshold: %g\n", st.RSIThreshold)
	fmt.Fprintf(&b, "gapThreshold: %g\n", st.GapThreshold)
	fmt.Fprintf(&b, "stopLossPercent: %g\n", st.StopLossPercent)
	fmt.Fprintf(&b, "cashReservePercent: %g\n", st.CashReservePercent)
	return b.String()
}
