package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/lens/backend/internal/evaluation"
	"github.com/wonny/lens/backend/internal/performance"
)

// Disclaimer is printed with every human-readable summary
const Disclaimer = "Past performance is shown for education only. It is not a forecast or a recommendation."

const (
	rule       = "═══════════════════════════════════════════════════════════"
	thinRule   = "───────────────────────────────────────────────────────────"
	notDefined = "n/a"
)

// Percent formats an optional ratio as a percentage
func Percent(v *float64) string {
	if v == nil {
		return notDefined
	}
	return fmt.Sprintf("%.2f%%", *v*100)
}

// Ratio formats an optional ratio with two decimals
func Ratio(v *float64) string {
	if v == nil {
		return notDefined
	}
	return fmt.Sprintf("%.2f", *v)
}

// WriteSummary prints a plain-text summary of an evaluation.
// Values are reported as numbers only; nothing is labelled good or bad.
func WriteSummary(w io.Writer, title string, res *evaluation.Result, capital *CapitalView) error {
	p := res.Payload
	var b strings.Builder

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "  %s\n", title)
	fmt.Fprintln(&b, thinRule)
	fmt.Fprintf(&b, "  Period       : %s ~ %s (%d points)\n", p.Period.Start, p.Period.End, len(p.NAV))
	fmt.Fprintf(&b, "  Cumulative   : %s\n", Percent(p.Metrics.CumulativeReturn))
	fmt.Fprintf(&b, "  CAGR         : %s\n", Percent(p.Metrics.AnnualizedReturn))
	fmt.Fprintf(&b, "  Volatility   : %s\n", Percent(p.Metrics.Volatility))
	fmt.Fprintf(&b, "  Max drawdown : %s\n", Percent(p.Metrics.MaxDrawdown))
	fmt.Fprintf(&b, "  Sharpe       : %s\n", Ratio(p.Metrics.SharpeRatio))
	fmt.Fprintf(&b, "  Sortino      : %s\n", Ratio(p.Metrics.SortinoRatio))
	fmt.Fprintf(&b, "  Rebalances   : %d (cost %.6f of NAV)\n", p.Rebalancing.Count, p.Rebalancing.TotalCost)

	if capital != nil {
		fmt.Fprintln(&b, thinRule)
		fmt.Fprintf(&b, "  Capital      : %s → %s (%s)\n", capital.Initial, capital.Final, capital.Change)
		fmt.Fprintf(&b, "  Range        : %s ~ %s\n", capital.Low, capital.High)
	}

	if len(p.Extensions.YearlyReturns) > 0 {
		fmt.Fprintln(&b, thinRule)
		for _, y := range p.Extensions.YearlyReturns {
			v := y.Return
			fmt.Fprintf(&b, "  %d         : %s\n", y.Year, Percent(&v))
		}
	}

	if len(p.Extensions.Contributions) > 0 {
		fmt.Fprintln(&b, thinRule)
		for _, c := range p.Extensions.Contributions {
			v := c.Contribution
			fmt.Fprintf(&b, "  %-12s : %s (weight %.2f)\n", c.ItemKey, Percent(&v), c.Weight)
		}
	}

	for _, key := range []string{performance.WindowKey(3), performance.WindowKey(5)} {
		points := p.Extensions.RollingReturns[key]
		if len(points) == 0 {
			continue
		}
		last := points[len(points)-1].Value
		fmt.Fprintf(&b, "  Rolling %-4s : %s (latest)\n", strings.TrimPrefix(key, "window_"), Percent(&last))
	}

	if n := len(p.Extensions.DrawdownSegments); n > 0 {
		fmt.Fprintf(&b, "  Drawdowns    : %d segments\n", n)
	}

	for _, tr := range p.Extensions.TailRisk {
		v, cv := tr.VaR, tr.CVaR
		fmt.Fprintf(&b, "  VaR %.0f%%      : %s daily (CVaR %s, %d days)\n", tr.Confidence*100, Percent(&v), Percent(&cv), tr.Samples)
	}

	for _, warn := range p.QualityWarnings {
		fmt.Fprintf(&b, "  ⚠️  %s %s: %s\n", warn.ItemKey, warn.Check, warn.Message)
	}

	fmt.Fprintln(&b, thinRule)
	fmt.Fprintf(&b, "  result_hash  : %s\n", res.ResultHash)
	fmt.Fprintf(&b, "  request_hash : %s (cache hit: %t)\n", res.RequestHash, res.CacheHit)
	fmt.Fprintf(&b, "  %s (%s)\n", Disclaimer, p.DisclaimerVersion)
	fmt.Fprintln(&b, rule)

	_, err := io.WriteString(w, b.String())
	return err
}
