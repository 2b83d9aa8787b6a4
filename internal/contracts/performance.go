package contracts

import "time"

// PerformanceMetrics are the headline statistics of a NAV series.
// nil means undefined (e.g. fewer than 2 points, zero volatility).
// ⭐ SSOT: 성과 지표 결과 형식
type PerformanceMetrics struct {
	PeriodReturn     *float64 `json:"period_return"`
	CumulativeReturn *float64 `json:"cumulative_return"`
	AnnualizedReturn *float64 `json:"cagr"`
	Volatility       *float64 `json:"volatility"`
	MaxDrawdown      *float64 `json:"max_drawdown"`
	SharpeRatio      *float64 `json:"sharpe_ratio"`
	SortinoRatio     *float64 `json:"sortino_ratio"`
}

// RollingPoint is the value of a trailing window ending at Date
type RollingPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// YearlyReturn is the return of one calendar year
type YearlyReturn struct {
	Year   int     `json:"year"`
	Return float64 `json:"return"`
}

// Contribution is the static-weight contribution of one instrument
type Contribution struct {
	ItemKey      string  `json:"item_key"`
	Weight       float64 `json:"weight"`
	StartPrice   float64 `json:"start_price"`
	EndPrice     float64 `json:"end_price"`
	Return       float64 `json:"return"`
	Contribution float64 `json:"contribution"`
}

// DrawdownSegment is a contiguous interval below a prior peak
type DrawdownSegment struct {
	Start      time.Time `json:"start"`
	Trough     time.Time `json:"trough"`
	End        time.Time `json:"end"`
	PeakNAV    float64   `json:"peak_nav"`
	TroughNAV  float64   `json:"trough_nav"`
	Drawdown   float64   `json:"drawdown"`
	Recovered  bool      `json:"recovered"`
	LengthDays int       `json:"length_days"`
}

// TailRisk is the historical VaR/CVaR of daily NAV returns (loss positive)
type TailRisk struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
	Samples    int     `json:"samples"`
}

// ExtensionData bundles the extended analytics
type ExtensionData struct {
	RollingReturns    map[string][]RollingPoint `json:"rolling_returns"`
	RollingVolatility map[string][]RollingPoint `json:"rolling_volatility"`
	YearlyReturns     []YearlyReturn            `json:"yearly_returns"`
	Contributions     []Contribution            `json:"contributions"`
	DrawdownSegments  []DrawdownSegment         `json:"drawdown_segments"`
	TailRisk          []TailRisk                `json:"tail_risk"`
}
