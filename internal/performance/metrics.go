package performance

import (
	"math"

	"github.com/wonny/lens/backend/internal/contracts"
)

const (
	// DefaultAnnualizationFactor is the number of trading days per year
	DefaultAnnualizationFactor = 252.0

	// daysPerYear is the calendar basis of CAGR
	daysPerYear = 365.0
)

// Options configures the metric calculation
type Options struct {
	AnnualizationFactor float64 `yaml:"annualization_factor" json:"annualization_factor"`
	RiskFreeRate        float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
}

// DefaultOptions returns 252 trading days and a zero risk-free rate
func DefaultOptions() Options {
	return Options{AnnualizationFactor: DefaultAnnualizationFactor}
}

// Calculator computes headline statistics of a NAV series
// ⭐ SSOT: 성과 지표 계산 로직은 여기서만
type Calculator struct {
	opts Options
}

// NewCalculator creates a calculator. A non-positive factor falls back to 252.
func NewCalculator(opts Options) *Calculator {
	if opts.AnnualizationFactor <= 0 || math.IsNaN(opts.AnnualizationFactor) {
		opts.AnnualizationFactor = DefaultAnnualizationFactor
	}
	return &Calculator{opts: opts}
}

// Options returns the effective options
func (c *Calculator) Options() Options {
	return c.opts
}

// Calculate computes the metrics of nav.
// periodDays ≤ 0 means max(n-1, 1) observations are used as the CAGR period.
// Fewer than 2 points leaves every metric nil.
func (c *Calculator) Calculate(nav []float64, periodDays int) contracts.PerformanceMetrics {
	var m contracts.PerformanceMetrics
	n := len(nav)
	if n < 2 {
		return m
	}

	if periodDays <= 0 {
		periodDays = n - 1
		if periodDays < 1 {
			periodDays = 1
		}
	}

	first, last := nav[0], nav[n-1]
	if first != 0 {
		m.PeriodReturn = finite((last - first) / first)
		m.CumulativeReturn = finite(last/first - 1)
	}

	if m.CumulativeReturn != nil {
		m.AnnualizedReturn = finite(math.Pow(1+*m.CumulativeReturn, daysPerYear/float64(periodDays)) - 1)
	}

	returns := DailyReturns(nav)
	m.Volatility = finite(c.annualizedStdev(returns))
	m.MaxDrawdown = finite(MaxDrawdown(nav))

	if m.AnnualizedReturn != nil {
		excess := *m.AnnualizedReturn - c.opts.RiskFreeRate
		if m.Volatility != nil && *m.Volatility > 0 {
			m.SharpeRatio = finite(excess / *m.Volatility)
		}
		if downside := c.downsideDeviation(returns); downside > 0 {
			m.SortinoRatio = finite(excess / downside)
		}
	}

	return m
}

// Volatility returns the annualized population stdev of returns
func (c *Calculator) Volatility(returns []float64) float64 {
	return c.annualizedStdev(returns)
}

func (c *Calculator) annualizedStdev(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	return populationStdev(returns) * math.Sqrt(c.opts.AnnualizationFactor)
}

// downsideDeviation uses the negative returns only
func (c *Calculator) downsideDeviation(returns []float64) float64 {
	negative := make([]float64, 0, len(returns))
	for _, r := range returns {
		if r < 0 {
			negative = append(negative, r)
		}
	}
	if len(negative) == 0 {
		return 0
	}
	return populationStdev(negative) * math.Sqrt(c.opts.AnnualizationFactor)
}

// DailyReturns returns the simple step returns of nav, skipping zero bases
func DailyReturns(nav []float64) []float64 {
	if len(nav) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(nav)-1)
	for t := 1; t < len(nav); t++ {
		if nav[t-1] == 0 {
			continue
		}
		returns = append(returns, (nav[t]-nav[t-1])/nav[t-1])
	}
	return returns
}

// MaxDrawdown returns min(nav[t]/peak(t) - 1), 0 when nav never dips
func MaxDrawdown(nav []float64) float64 {
	if len(nav) == 0 {
		return 0
	}
	peak := nav[0]
	mdd := 0.0
	for _, v := range nav {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := v/peak - 1; dd < mdd {
			mdd = dd
		}
	}
	return mdd
}

func populationStdev(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}

// finite boxes v, nil for NaN/Inf
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
