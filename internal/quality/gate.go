package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
)

// Severity grades one check result
type Severity string

const (
	SeverityPass Severity = "PASS"
	SeverityWarn Severity = "WARN"
	SeverityFail Severity = "FAIL"
)

// Check names
const (
	CheckNonEmpty     = "non_empty"
	CheckPositive     = "positive_prices"
	CheckCoverage     = "period_coverage"
	CheckCalendarGaps = "calendar_gaps"
)

// Config holds quality gate thresholds
type Config struct {
	MinCoverage float64 `yaml:"min_coverage" json:"min_coverage"` // 0.9 of the requested period
	MaxGapDays  int     `yaml:"max_gap_days" json:"max_gap_days"` // 10 calendar days
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinCoverage: 0.9,
		MaxGapDays:  10,
	}
}

// CheckResult is the outcome of one check on one series
type CheckResult struct {
	ItemKey  string   `json:"item_key"`
	Check    string   `json:"check"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message,omitempty"`
}

// Report collects every check result of a gate run
type Report struct {
	Results []CheckResult `json:"results"`
}

// HasFailures reports whether any result is FAIL
func (r *Report) HasFailures() bool {
	return len(r.filter(SeverityFail)) > 0
}

// Failures returns the FAIL results
func (r *Report) Failures() []CheckResult {
	return r.filter(SeverityFail)
}

// Warnings returns the WARN results
func (r *Report) Warnings() []CheckResult {
	return r.filter(SeverityWarn)
}

func (r *Report) filter(s Severity) []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if res.Severity == s {
			out = append(out, res)
		}
	}
	return out
}

// Gate validates price series before they reach the simulator
// ⭐ SSOT: 가격 시계열 품질 검증은 여기서만
type Gate struct {
	config Config
}

// NewGate creates a new Gate instance
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Check validates every series against the requested [start, end] period
func (g *Gate) Check(series []contracts.PriceSeries, start, end time.Time) *Report {
	report := &Report{}
	for _, s := range series {
		report.Results = append(report.Results, g.checkSeries(s, start, end)...)
	}
	return report
}

func (g *Gate) checkSeries(s contracts.PriceSeries, start, end time.Time) []CheckResult {
	if s.IsEmpty() {
		return []CheckResult{{
			ItemKey:  s.ItemKey,
			Check:    CheckNonEmpty,
			Severity: SeverityFail,
			Message:  "no price data in the requested period",
		}}
	}

	results := []CheckResult{
		g.checkPositive(s),
		g.checkCoverage(s, start, end),
	}
	if g.config.MaxGapDays > 0 {
		results = append(results, g.checkGaps(s))
	}
	return results
}

// checkPositive fails on non-finite prices and warns on zero or negative ones.
// Non-positive prices only break the simulation on the start date or a
// rebalance date, which the simulator reports as insufficient data.
func (g *Gate) checkPositive(s contracts.PriceSeries) CheckResult {
	var nonFinite, nonPositive []string
	for _, p := range s.Points {
		switch {
		case math.IsNaN(p.Price) || math.IsInf(p.Price, 0):
			nonFinite = append(nonFinite, p.Date.Format(contracts.DateLayout))
		case p.Price <= 0:
			nonPositive = append(nonPositive, p.Date.Format(contracts.DateLayout))
		}
	}

	switch {
	case len(nonFinite) > 0:
		return CheckResult{
			ItemKey:  s.ItemKey,
			Check:    CheckPositive,
			Severity: SeverityFail,
			Message:  fmt.Sprintf("%d non-finite prices (first on %s)", len(nonFinite), nonFinite[0]),
		}
	case len(nonPositive) > 0:
		return CheckResult{
			ItemKey:  s.ItemKey,
			Check:    CheckPositive,
			Severity: SeverityWarn,
			Message:  fmt.Sprintf("%d non-positive prices (first on %s)", len(nonPositive), nonPositive[0]),
		}
	}
	return CheckResult{ItemKey: s.ItemKey, Check: CheckPositive, Severity: SeverityPass}
}

// checkCoverage warns when the series spans too little of the period
func (g *Gate) checkCoverage(s contracts.PriceSeries, start, end time.Time) CheckResult {
	first, _ := s.First()
	last, _ := s.Last()

	requested := end.Sub(start).Hours() / 24
	covered := last.Date.Sub(first.Date).Hours() / 24

	ratio := 1.0
	if requested > 0 {
		ratio = covered / requested
	}
	if ratio >= g.config.MinCoverage {
		return CheckResult{ItemKey: s.ItemKey, Check: CheckCoverage, Severity: SeverityPass}
	}
	return CheckResult{
		ItemKey:  s.ItemKey,
		Check:    CheckCoverage,
		Severity: SeverityWarn,
		Message: fmt.Sprintf("covers %.1f%% of the period (%s ~ %s)", ratio*100,
			first.Date.Format(contracts.DateLayout), last.Date.Format(contracts.DateLayout)),
	}
}

// checkGaps warns on calendar gaps longer than MaxGapDays
func (g *Gate) checkGaps(s contracts.PriceSeries) CheckResult {
	var gaps []string
	for i := 1; i < len(s.Points); i++ {
		days := int(s.Points[i].Date.Sub(s.Points[i-1].Date).Hours() / 24)
		if days > g.config.MaxGapDays {
			gaps = append(gaps, fmt.Sprintf("%s→%s", s.Points[i-1].Date.Format(contracts.DateLayout),
				s.Points[i].Date.Format(contracts.DateLayout)))
		}
	}
	if len(gaps) == 0 {
		return CheckResult{ItemKey: s.ItemKey, Check: CheckCalendarGaps, Severity: SeverityPass}
	}
	return CheckResult{
		ItemKey:  s.ItemKey,
		Check:    CheckCalendarGaps,
		Severity: SeverityWarn,
		Message:  fmt.Sprintf("%d gaps over %d days: %s", len(gaps), g.config.MaxGapDays, strings.Join(gaps, ", ")),
	}
}

// EnforcePolicy turns FAIL results into an error.
// An empty series is insufficient data; any other FAIL is a data quality error.
func EnforcePolicy(report *Report) error {
	failures := report.Failures()
	if len(failures) == 0 {
		return nil
	}

	empty := false
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = fmt.Sprintf("%s: %s (%s)", f.ItemKey, f.Check, f.Message)
		if f.Check == CheckNonEmpty {
			empty = true
		}
	}
	if empty {
		return contracts.InsufficientData("%s", strings.Join(msgs, "; "))
	}
	return contracts.DataQuality("%s", strings.Join(msgs, "; "))
}
