package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/gustianaagg8217/Aventa-Inova-2026/internal/signal"
)

func sampleSignal(dir signal.Direction) signal.Signal {
	return signal.Signal{
		ID:         "sig-1",
		Symbol:     "XAUUSD",
		Direction:  dir,
		Confidence: 0.0008,
		Price:      2045.50,
		Ts:         time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}
}

func samplePreview() Preview {
	return Preview{TakeProfit: 2076.18, StopLoss: 2025.05, TakeProfitPct: 0.015, StopLossPct: 0.01}
}

func TestFormatDetailedFieldOrder(t *testing.T) {
	text := FormatSignal(TemplateDetailed, sampleSignal(signal.Buy), samplePreview())

	// fields must appear in the fixed order the channel subscribers rely on
	fields := []string{
		"BUY XAUUSD",
		"Entry Price:</b> $2045.50",
		"Confidence:",
		"Take Profit:</b> $2076.18 (+1.50%)",
		"Stop Loss:</b> $2025.05 (-1.00%)",
		"Risk/Reward Ratio:</b> 1.50:1",
		"2026-03-02 09:30:00 UTC",
	}
	last := -1
	for _, field := range fields {
		idx := strings.Index(text, field)
		if idx < 0 {
			t.Fatalf("field %q missing from message:\n%s", field, text)
		}
		if idx < last {
			t.Fatalf("field %q out of order in message:\n%s", field, text)
		}
		last = idx
	}
	if !strings.HasPrefix(text, "🟢") {
		t.Fatalf("BUY message should lead with the green marker")
	}
}

func TestFormatSellEmoji(t *testing.T) {
	text := FormatSignal(TemplateDetailed, sampleSignal(signal.Sell), samplePreview())
	if !strings.HasPrefix(text, "🔴") {
		t.Fatalf("SELL message should lead with the red marker")
	}
	if !strings.Contains(text, "SELL XAUUSD") {
		t.Fatalf("SELL direction missing:\n%s", text)
	}
}

func TestFormatMinimal(t *testing.T) {
	text := FormatSignal(TemplateMinimal, sampleSignal(signal.Buy), samplePreview())
	if !strings.Contains(text, "Entry: $2045.50") || !strings.Contains(text, "TP: $2076.18") {
		t.Fatalf("minimal template missing core fields:\n%s", text)
	}
	if strings.Contains(text, "Risk/Reward") {
		t.Fatalf("minimal template should not carry the detailed fields")
	}
}

func TestRiskRewardZeroStopLoss(t *testing.T) {
	p := Preview{TakeProfitPct: 0.015}
	if p.RiskReward() != 0 {
		t.Fatalf("zero stop-loss pct must not divide by zero")
	}
}
