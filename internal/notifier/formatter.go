package notifier

import (
	"fmt"
	"math"
	"strings"
	"time"

	"QuantDesk/internal/model"
)

const (
	rule       = "━━━━━━━━━━━━━━━━━━━━━━━━━\n\n"
	disclaimer = "\n\n*⚠️ This is not financial advice. Past performance does not guarantee future results.*"
)

func badge(r model.RegimeResult) string {
	if r.IsRiskOn {
		return "🟢 RISK-ON"
	}
	return "🔴 RISK-OFF"
}

// RegimeReport is the input of the daily regime signal.
type RegimeReport struct {
	Label     string
	Benchmark string
	Holdings  int
	Regime    model.RegimeResult
	AsOf      time.Time
}

// FormatRegimeReport renders the daily risk-on/risk-off signal.
func FormatRegimeReport(r RegimeReport) string {
	var b strings.Builder
	reg := r.Regime

	b.WriteString(fmt.Sprintf("**📊 %s Daily Signal | %s**\n", r.Label, r.AsOf.Format("January 02, 2006")))
	b.WriteString(rule)
	b.WriteString(fmt.Sprintf("**Regime: %s**\n\n", badge(reg)))
	b.WriteString(fmt.Sprintf("%s: **$%.2f**\n", r.Benchmark, reg.CurrentPrice))
	b.WriteString(fmt.Sprintf("%d-day SMA: **$%.2f**\n", reg.Window, reg.MovingAverage))
	b.WriteString(fmt.Sprintf("%s is **%.2f%%** %s the %d-SMA\n\n",
		r.Benchmark, math.Abs(reg.PercentDifference), reg.Direction(), reg.Window))

	if reg.IsRiskOn {
		b.WriteString(fmt.Sprintf("**Action:** Hold top %d momentum stocks.\n", r.Holdings))
		b.WriteString("Portfolio remains fully invested in equities.")
	} else {
		b.WriteString("**Action:** Move to defensive allocation (cash/T-bills).\n")
		b.WriteString("Capital preservation mode active.")
	}

	b.WriteString(disclaimer)
	return b.String()
}

// FormatRegimeCheck renders the short operator reply to a manual regime check.
func FormatRegimeCheck(label, benchmark string, reg model.RegimeResult) string {
	return fmt.Sprintf("**%s Regime Check**\nStatus: %s\n%s: $%.2f | %d-SMA: $%.2f\n(%.2f%% %s)",
		label, badge(reg), benchmark, reg.CurrentPrice, reg.Window, reg.MovingAverage,
		math.Abs(reg.PercentDifference), reg.Direction())
}

// RankedReport is the input of a rebalance report.
type RankedReport struct {
	Label         string
	Title         string // e.g. "Quarterly Rebalance"
	Subtitle      string // optional line under the regime badge
	Benchmark     string
	Regime        *model.RegimeResult // nil when the strategy ignores the regime
	Picks         []model.RankedPick
	Weight        float64 // percent per position
	FullyInvested bool
	NextRebalance string
	AsOf          time.Time
}

// FormatRankedReport renders a rebalance report. A risk-off regime, or an
// empty pick list, renders a fully defensive section instead of a table.
func FormatRankedReport(r RankedReport) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**📊 %s %s | %s**\n", r.Label, r.Title, r.AsOf.Format("January 2006")))
	b.WriteString(rule)
	if r.Regime != nil {
		b.WriteString(fmt.Sprintf("**Regime: %s**\n\n", badge(*r.Regime)))
	}
	if r.Subtitle != "" {
		b.WriteString(r.Subtitle + "\n\n")
	}

	switch {
	case r.Regime != nil && !r.Regime.IsRiskOn:
		b.WriteString(fmt.Sprintf("%s is **below** the %d-day SMA.\n", r.Benchmark, r.Regime.Window))
		b.WriteString("**Action:** 100% defensive, hold cash/T-bills (BIL).\n")
		b.WriteString("No equity positions this period.\n\n")
		b.WriteString(fmt.Sprintf("*Portfolio will re-enter equities when %s crosses above the %d-SMA.*",
			r.Benchmark, r.Regime.Window))
	case len(r.Picks) == 0:
		b.WriteString("**No eligible positions this period.**\n")
		b.WriteString("No stock passed the momentum, price and liquidity filters.\n")
		b.WriteString("**Action:** Stay fully defensive in cash/T-bills until the next rebalance.")
	default:
		n := len(r.Picks)
		b.WriteString(fmt.Sprintf("**Top %d Momentum Stocks | Equal Weight (%.2f%% each):**\n\n", n, r.Weight))
		writePickTable(&b, r.Picks)
		b.WriteString("\n**Rebalance instructions:**\n")
		b.WriteString(fmt.Sprintf("• Equal-weight all %d stocks at ~%.2f%% each\n", n, r.Weight))
		b.WriteString(fmt.Sprintf("• Sell any stocks no longer in the top %d\n", n))
		b.WriteString("• Buy new entries at equal weight\n")
		if r.FullyInvested {
			b.WriteString(fmt.Sprintf("• %s remains fully invested, no market timing\n", r.Label))
		}
		b.WriteString(fmt.Sprintf("• Next rebalance: %s", r.NextRebalance))
	}

	b.WriteString(disclaimer)
	return b.String()
}

func writePickTable(b *strings.Builder, picks []model.RankedPick) {
	b.WriteString("```\n")
	b.WriteString(fmt.Sprintf("%-6s %-8s %-12s %8s\n", "Rank", "Ticker", "12-1 Mom %", "Price"))
	b.WriteString(fmt.Sprintf("%s %s %s %s\n",
		strings.Repeat("─", 6), strings.Repeat("─", 8), strings.Repeat("─", 12), strings.Repeat("─", 8)))
	for _, p := range picks {
		b.WriteString(fmt.Sprintf("%-6d %-8s %+10.2f%%  $%7.2f\n", p.Rank, p.Ticker, p.MomentumScore, p.Price))
	}
	b.WriteString("```\n")
}

// EqualWeight returns the percent allocated to each of n positions.
func EqualWeight(n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Round(10000/float64(n)) / 100
}

func vixLevel(v float64) string {
	switch {
	case v < 15:
		return "Low"
	case v < 20:
		return "Moderate"
	case v < 30:
		return "Elevated"
	default:
		return "High"
	}
}

func arrow(change float64) string {
	if change >= 0 {
		return "🟢"
	}
	return "🔴"
}

func mood(change float64) string {
	switch {
	case change > 1:
		return "Strong bullish momentum today."
	case change > 0:
		return "Mild positive day for equities."
	case change > -1:
		return "Slight pullback, nothing unusual."
	default:
		return "Notable selling pressure today."
	}
}

// FormatMarketAnalysis renders the daily market overview. regime may be nil
// when the benchmark history could not be fetched.
func FormatMarketAnalysis(ov model.MarketOverview, regime *model.RegimeResult, label, benchmark string, asOf time.Time) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("**🌍 Daily Market Analysis | %s**\n", asOf.Format("Monday, January 02, 2006")))
	b.WriteString(rule)

	b.WriteString("**📈 Major Indices**\n")
	for _, q := range ov.Indices {
		b.WriteString(fmt.Sprintf("%s **%s**: $%.2f (%+.2f%%)", arrow(q.DailyChange), q.Name, q.Price, q.DailyChange))
		if q.FiveDayChange != nil {
			b.WriteString(fmt.Sprintf(" | 5d %+.2f%%", *q.FiveDayChange))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if ov.VIX != nil {
		b.WriteString(fmt.Sprintf("**📊 Volatility (VIX):** %.2f | %s\n\n", ov.VIX.Price, vixLevel(ov.VIX.Price)))
	}

	if regime != nil {
		b.WriteString(fmt.Sprintf("**🛡️ %s Regime:** %s\n", label, badge(*regime)))
		b.WriteString(fmt.Sprintf("%s $%.2f is %.2f%% %s the %d-SMA ($%.2f)\n\n",
			benchmark, regime.CurrentPrice, math.Abs(regime.PercentDifference), regime.Direction(),
			regime.Window, regime.MovingAverage))
	}

	b.WriteString("**🏭 Sector Performance (Today)**\n")
	for _, q := range ov.Sectors {
		b.WriteString(fmt.Sprintf("%s %s: %+.2f%%\n", arrow(q.DailyChange), q.Name, q.DailyChange))
	}
	b.WriteString("\n")

	if ov.Bonds != nil {
		b.WriteString(fmt.Sprintf("**🏦 Bonds:** %s (%s) $%.2f (%+.2f%%)\n\n",
			ov.Bonds.Name, ov.Bonds.Ticker, ov.Bonds.Price, ov.Bonds.DailyChange))
	}

	if ov.Lead != nil {
		b.WriteString(fmt.Sprintf("**📝 Summary:** %s\n", mood(ov.Lead.DailyChange)))
	}

	b.WriteString("\n*This analysis is informational only and not financial advice.*")
	return b.String()
}
