package performance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/internal/risk"
)

const roundPlaces int32 = 6

var (
	// RollingReturnWindows are the trailing-return windows in years
	RollingReturnWindows = []int{3, 5}
	// RollingVolatilityWindows are the trailing-volatility windows in years
	RollingVolatilityWindows = []int{3}
)

// WindowKey names a rolling window in the extension payload
func WindowKey(years int) string {
	return fmt.Sprintf("window_%dy", years)
}

// ExtensionBuilder derives the extended analytics from a NAV series.
// It consumes the same NAV as Calculator and never feeds back into it.
type ExtensionBuilder struct {
	calc *Calculator
}

// NewExtensionBuilder creates a builder sharing calc's annualization
func NewExtensionBuilder(calc *Calculator) *ExtensionBuilder {
	if calc == nil {
		calc = NewCalculator(DefaultOptions())
	}
	return &ExtensionBuilder{calc: calc}
}

// Build computes every extension.
// series supplies boundary prices for contributions, keyed by item key.
func (b *ExtensionBuilder) Build(nav []contracts.NAVPoint, portfolio contracts.PortfolioSpec, series map[string]contracts.PriceSeries) contracts.ExtensionData {
	ext := contracts.ExtensionData{
		RollingReturns:    make(map[string][]contracts.RollingPoint, len(RollingReturnWindows)),
		RollingVolatility: make(map[string][]contracts.RollingPoint, len(RollingVolatilityWindows)),
		YearlyReturns:     YearlyReturns(nav),
		DrawdownSegments:  DrawdownSegments(nav),
		TailRisk:          TailRisk(nav),
	}

	for _, w := range RollingReturnWindows {
		ext.RollingReturns[WindowKey(w)] = RollingReturns(nav, w)
	}
	for _, w := range RollingVolatilityWindows {
		ext.RollingVolatility[WindowKey(w)] = b.RollingVolatility(nav, w)
	}

	if len(nav) > 0 {
		start, end := nav[0].Date, nav[len(nav)-1].Date
		ext.Contributions = Contributions(portfolio, series, start, end)
	} else {
		ext.Contributions = make([]contracts.Contribution, 0)
	}

	return ext
}

// TailRisk reports historical VaR/CVaR of the daily NAV returns at each
// default confidence level. Fewer than risk.MinSamples returns yields none.
func TailRisk(nav []contracts.NAVPoint) []contracts.TailRisk {
	out := make([]contracts.TailRisk, 0, len(risk.DefaultConfidenceLevels))
	returns := DailyReturns(contracts.NAVValues(nav))
	if len(returns) < risk.MinSamples {
		return out
	}
	for _, c := range risk.DefaultConfidenceLevels {
		r := risk.HistoricalVaR(returns, c)
		out = append(out, contracts.TailRisk{
			Confidence: c,
			VaR:        round6(r.VaR),
			CVaR:       round6(r.CVaR),
			Samples:    r.Samples,
		})
	}
	return out
}

// RollingReturns returns nav[i]/nav[start]-1 for each point, where start is
// the earliest point no older than years×365 days. Points whose window has
// no earlier point are skipped.
func RollingReturns(nav []contracts.NAVPoint, years int) []contracts.RollingPoint {
	out := make([]contracts.RollingPoint, 0)
	forEachWindow(nav, years, func(start, i int) {
		if nav[start].NAV == 0 {
			return
		}
		out = append(out, contracts.RollingPoint{
			Date:  nav[i].Date,
			Value: round6(nav[i].NAV/nav[start].NAV - 1),
		})
	})
	return out
}

// RollingVolatility returns the annualized volatility of each trailing window
// holding at least 2 returns.
func (b *ExtensionBuilder) RollingVolatility(nav []contracts.NAVPoint, years int) []contracts.RollingPoint {
	out := make([]contracts.RollingPoint, 0)
	values := contracts.NAVValues(nav)
	forEachWindow(nav, years, func(start, i int) {
		returns := DailyReturns(values[start : i+1])
		if len(returns) < 2 {
			return
		}
		vol := b.calc.Volatility(returns)
		if finite(vol) == nil {
			return
		}
		out = append(out, contracts.RollingPoint{Date: nav[i].Date, Value: round6(vol)})
	})
	return out
}

// forEachWindow calls fn(start, i) for every i whose window start precedes it.
// start only moves forward.
func forEachWindow(nav []contracts.NAVPoint, years int, fn func(start, i int)) {
	start := 0
	for i, p := range nav {
		from := p.Date.AddDate(0, 0, -years*365)
		for start < i && nav[start].Date.Before(from) {
			start++
		}
		if start >= i {
			continue
		}
		fn(start, i)
	}
}

// YearlyReturns groups nav by calendar year: last/first-1 for each year
// whose first NAV is positive.
func YearlyReturns(nav []contracts.NAVPoint) []contracts.YearlyReturn {
	out := make([]contracts.YearlyReturn, 0)
	for i := 0; i < len(nav); {
		year := nav[i].Date.Year()
		j := i
		for j+1 < len(nav) && nav[j+1].Date.Year() == year {
			j++
		}
		if first := nav[i].NAV; first > 0 {
			out = append(out, contracts.YearlyReturn{Year: year, Return: nav[j].NAV/first - 1})
		}
		i = j + 1
	}
	return out
}

// Contributions approximates each instrument's share of the period return
// with its static target weight. Instruments without positive boundary
// prices on start and end are skipped.
func Contributions(portfolio contracts.PortfolioSpec, series map[string]contracts.PriceSeries, start, end time.Time) []contracts.Contribution {
	out := make([]contracts.Contribution, 0, len(portfolio.Items))
	for _, item := range portfolio.Items {
		s, ok := series[item.ItemKey]
		if !ok {
			continue
		}
		startPrice, ok := s.PriceAt(start)
		if !ok || startPrice <= 0 {
			continue
		}
		endPrice, ok := s.PriceAt(end)
		if !ok || endPrice <= 0 {
			continue
		}

		ret := endPrice/startPrice - 1
		out = append(out, contracts.Contribution{
			ItemKey:      item.ItemKey,
			Weight:       item.Weight,
			StartPrice:   startPrice,
			EndPrice:     endPrice,
			Return:       ret,
			Contribution: ret * item.Weight,
		})
	}
	return out
}

// round6 rounds half away from zero to 6 decimals
func round6(v float64) float64 {
	return decimal.NewFromFloat(v).Round(roundPlaces).InexactFloat64()
}
