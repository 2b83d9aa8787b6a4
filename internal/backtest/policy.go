package backtest

import (
	"math"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
)

// TriggerReason explains why a rebalance fired
type TriggerReason string

const (
	ReasonNone     TriggerReason = ""
	ReasonPeriodic TriggerReason = "periodic"
	ReasonDrift    TriggerReason = "drift"
)

// Policy decides whether to restore target weights on a given step
type Policy struct {
	config contracts.RebalancingConfig
}

// NewPolicy wraps a validated rebalancing configuration
func NewPolicy(cfg contracts.RebalancingConfig) Policy {
	return Policy{config: cfg}
}

// Evaluate checks the trigger for the step prev → current.
// current and target are weights in the same instrument order.
func (p Policy) Evaluate(prev, current time.Time, currentWeights, targetWeights []float64) (bool, TriggerReason) {
	switch p.config.Type() {
	case contracts.RebalancePeriodic:
		if periodChanged(p.config.Frequency(), prev, current) {
			return true, ReasonPeriodic
		}
	case contracts.RebalanceDrift:
		if drifted(currentWeights, targetWeights, p.config.DriftThreshold()) {
			return true, ReasonDrift
		}
	case contracts.RebalanceHybrid:
		if periodChanged(p.config.Frequency(), prev, current) {
			return true, ReasonPeriodic
		}
		if drifted(currentWeights, targetWeights, p.config.DriftThreshold()) {
			return true, ReasonDrift
		}
	}
	return false, ReasonNone
}

// NeedsWeights reports whether Evaluate reads the current weights
func (p Policy) NeedsWeights() bool {
	t := p.config.Type()
	return t == contracts.RebalanceDrift || t == contracts.RebalanceHybrid
}

// periodChanged compares calendar buckets of two dates
func periodChanged(freq contracts.RebalanceFrequency, prev, current time.Time) bool {
	switch freq {
	case contracts.FrequencyMonthly:
		return prev.Year() != current.Year() || prev.Month() != current.Month()
	case contracts.FrequencyQuarterly:
		return prev.Year() != current.Year() || quarter(prev) != quarter(current)
	default:
		return false
	}
}

// quarter returns the zero-based quarter index
func quarter(t time.Time) int {
	return (int(t.Month()) - 1) / 3
}

// drifted reports whether any absolute weight deviation exceeds threshold
func drifted(current, target []float64, threshold float64) bool {
	for i := range target {
		if math.Abs(current[i]-target[i]) > threshold {
			return true
		}
	}
	return false
}
