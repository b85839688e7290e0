package notify

import (
	"fmt"
	"strings"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

// Template selects the message body layout.
type Template string

const (
	TemplateMinimal  Template = "minimal"
	TemplateDetailed Template = "detailed"
)

// Preview carries the TP/SL prices and percentages computed for the message.
type Preview struct {
	TakeProfit    float64
	StopLoss      float64
	TakeProfitPct float64
	StopLossPct   float64
}

// RiskReward is the reward-to-risk ratio quoted in the message body.
func (p Preview) RiskReward() float64 {
	if p.StopLossPct == 0 {
		return 0
	}
	return p.TakeProfitPct / p.StopLossPct
}

// FormatSignal renders the fixed-field message body: direction, symbol, entry price,
// confidence, take-profit, stop-loss, risk/reward ratio, timestamp.
func FormatSignal(tmpl Template, sig signal.Signal, preview Preview) string {
	emoji := "🟢"
	if sig.Direction == signal.Sell {
		emoji = "🔴"
	}

	if tmpl == TemplateMinimal {
		return fmt.Sprintf("%s <b>%s</b> %s\nEntry: $%.2f\nTP: $%.2f\nSL: $%.2f\nConfidence: %.4f",
			emoji, sig.Direction, sig.Symbol, sig.Price, preview.TakeProfit, preview.StopLoss, sig.Confidence)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>SIGNAL TRADING AVENTA</b>\n", emoji)
	b.WriteString("━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(&b, "<b>Signal:</b> %s %s\n", sig.Direction, sig.Symbol)
	fmt.Fprintf(&b, "<b>Entry Price:</b> $%.2f\n", sig.Price)
	fmt.Fprintf(&b, "<b>Confidence:</b> %.1f%%\n", sig.Confidence*100)
	fmt.Fprintf(&b, "<b>Take Profit:</b> $%.2f (+%.2f%%)\n", preview.TakeProfit, preview.TakeProfitPct*100)
	fmt.Fprintf(&b, "<b>Stop Loss:</b> $%.2f (-%.2f%%)\n", preview.StopLoss, preview.StopLossPct*100)
	fmt.Fprintf(&b, "\n<b>Risk/Reward Ratio:</b> %.2f:1\n", preview.RiskReward())
	b.WriteString("\n━━━━━━━━━━━━━━━━━━━━━━\n")
	b.WriteString("<i>Aventa Trading Signals</i>\n")
	fmt.Fprintf(&b, "⏰ %s", sig.Ts.UTC().Format("2006-01-02 15:04:05 UTC"))
	return b.String()
}
