package backtest

import (
	"math"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
	"github.com/wonny/lens/backend/pkg/logger"
)

// Accounting selects the numeric representation of units and values
type Accounting string

const (
	// AccountingFloat keeps units and values in float64
	AccountingFloat Accounting = "float"
	// AccountingDecimal keeps units and values in fixed-precision decimals
	AccountingDecimal Accounting = "decimal"
)

// Config holds simulation inputs besides the aligned prices
type Config struct {
	Weights     []float64 // target weights, same order as AlignedSeries.Keys
	Rebalancing contracts.RebalancingConfig
	Accounting  Accounting
}

// RebalanceEvent records one executed rebalance
type RebalanceEvent struct {
	Date        time.Time     `json:"date"`
	Reason      TriggerReason `json:"reason"`
	ValueBefore float64       `json:"value_before"`
	Turnover    float64       `json:"turnover"`
	Cost        float64       `json:"cost"`
}

// Simulation is the outcome of a position simulation
type Simulation struct {
	NAV        []contracts.NAVPoint
	Rebalances []RebalanceEvent
	TotalCost  float64
	FinalUnits []float64
}

// RebalanceCount returns the number of executed rebalances
func (s *Simulation) RebalanceCount() int {
	return len(s.Rebalances)
}

// Simulator walks the aligned calendar holding unit counts per instrument
// ⭐ SSOT: 포지션 시뮬레이션(NAV 산출)은 여기서만
type Simulator struct {
	logger *logger.Logger
}

// NewSimulator creates a new position simulator
func NewSimulator(log *logger.Logger) *Simulator {
	if log == nil {
		log = logger.Nop()
	}
	return &Simulator{logger: log}
}

// Run simulates the weighted position over the aligned calendar.
// NAV starts at Σweights (1.0 for a valid portfolio) on the first aligned date.
func (s *Simulator) Run(aligned *AlignedSeries, cfg Config) (*Simulation, error) {
	if aligned == nil || aligned.Len() < 2 {
		return nil, contracts.InsufficientData("simulation needs at least 2 aligned dates")
	}
	if len(cfg.Weights) != len(aligned.Keys) {
		return nil, contracts.InvalidPortfolio("got %d weights for %d instruments", len(cfg.Weights), len(aligned.Keys))
	}

	policy := NewPolicy(cfg.Rebalancing)

	var (
		sim *Simulation
		err error
	)
	switch cfg.Accounting {
	case AccountingDecimal:
		sim, err = runDecimal(aligned, cfg, policy)
	default:
		sim, err = runFloat(aligned, cfg, policy)
	}
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"instruments": len(aligned.Keys),
		"dates":       aligned.Len(),
		"policy":      cfg.Rebalancing.Type(),
		"rebalances":  sim.RebalanceCount(),
		"total_cost":  sim.TotalCost,
		"final_nav":   sim.NAV[len(sim.NAV)-1].NAV,
	}).Debug("Position simulation completed")

	return sim, nil
}

func runFloat(a *AlignedSeries, cfg Config, policy Policy) (*Simulation, error) {
	n, m := a.Len(), len(a.Keys)
	weights := cfg.Weights
	costRate := cfg.Rebalancing.CostRate()

	units := make([]float64, m)
	for i := 0; i < m; i++ {
		price := a.Prices[i][0]
		if price <= 0 {
			return nil, contracts.InsufficientData("non-positive starting price %v for %s on %s",
				price, a.Keys[i], a.Dates[0].Format(contracts.DateLayout))
		}
		units[i] = weights[i] * 1.0 / price
	}

	sim := &Simulation{NAV: make([]contracts.NAVPoint, 0, n)}
	sim.NAV = append(sim.NAV, contracts.NAVPoint{Date: a.Dates[0], NAV: markFloat(units, a.Prices, 0)})

	current := make([]float64, m)
	for t := 1; t < n; t++ {
		if policy.NeedsWeights() {
			total := markFloat(units, a.Prices, t)
			if total <= 0 {
				return nil, contracts.InsufficientData("portfolio value is not positive on %s", a.Dates[t].Format(contracts.DateLayout))
			}
			for i := 0; i < m; i++ {
				current[i] = units[i] * a.Prices[i][t] / total
			}
		}

		if fire, reason := policy.Evaluate(a.Dates[t-1], a.Dates[t], current, weights); fire {
			for i := 0; i < m; i++ {
				if a.Prices[i][t] <= 0 {
					return nil, contracts.InsufficientData("non-positive price %v for %s on rebalance date %s",
						a.Prices[i][t], a.Keys[i], a.Dates[t].Format(contracts.DateLayout))
				}
			}

			total := markFloat(units, a.Prices, t)
			turnover := 0.0
			for i := 0; i < m; i++ {
				turnover += math.Abs(weights[i]*total - units[i]*a.Prices[i][t])
			}
			cost := costRate * turnover
			after := total - cost
			if after <= 0 {
				return nil, contracts.InsufficientData("rebalancing cost %v exhausts portfolio value %v on %s",
					cost, total, a.Dates[t].Format(contracts.DateLayout))
			}
			for i := 0; i < m; i++ {
				units[i] = weights[i] * after / a.Prices[i][t]
			}

			sim.TotalCost += cost
			sim.Rebalances = append(sim.Rebalances, RebalanceEvent{
				Date:        a.Dates[t],
				Reason:      reason,
				ValueBefore: total,
				Turnover:    turnover,
				Cost:        cost,
			})
		}

		sim.NAV = append(sim.NAV, contracts.NAVPoint{Date: a.Dates[t], NAV: markFloat(units, a.Prices, t)})
	}

	sim.FinalUnits = units
	return sim, nil
}

// markFloat returns Σ units[i] × prices[i][t]
func markFloat(units []float64, prices [][]float64, t int) float64 {
	total := 0.0
	for i, u := range units {
		total += u * prices[i][t]
	}
	return total
}
