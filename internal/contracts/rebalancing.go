package contracts

import (
	"encoding/json"
	"math"
	"strings"
)

// RebalanceType selects the rebalancing policy
type RebalanceType string

const (
	RebalanceNone     RebalanceType = "NONE"
	RebalancePeriodic RebalanceType = "PERIODIC"
	RebalanceDrift    RebalanceType = "DRIFT"
	RebalanceHybrid   RebalanceType = "HYBRID"
)

// RebalanceFrequency is the calendar cadence of periodic rebalancing
type RebalanceFrequency string

const (
	FrequencyMonthly   RebalanceFrequency = "MONTHLY"
	FrequencyQuarterly RebalanceFrequency = "QUARTERLY"
)

// RebalancingConfig is the immutable policy configuration.
// Only NewRebalancingConfig (directly or through JSON) produces a non-zero value;
// the zero value behaves as NONE with no costs.
type RebalancingConfig struct {
	kind           RebalanceType
	frequency      RebalanceFrequency
	driftThreshold float64
	costRate       float64
}

// NewRebalancingConfig validates and builds a RebalancingConfig.
// Fields that do not apply to the chosen type are cleared so that equivalent
// configurations serialize identically.
func NewRebalancingConfig(kind RebalanceType, frequency RebalanceFrequency, driftThreshold, costRate float64) (RebalancingConfig, error) {
	kind = RebalanceType(strings.ToUpper(strings.TrimSpace(string(kind))))
	frequency = RebalanceFrequency(strings.ToUpper(strings.TrimSpace(string(frequency))))
	if kind == "" {
		kind = RebalanceNone
	}

	// cost_rate ≥ 1 이면 리밸런싱 비용이 NAV 전체를 소진함
	if math.IsNaN(costRate) || math.IsInf(costRate, 0) || costRate < 0 || costRate >= 1 {
		return RebalancingConfig{}, InvalidPortfolio("cost_rate must be in [0, 1), got %v", costRate)
	}

	cfg := RebalancingConfig{kind: kind, costRate: costRate}

	switch kind {
	case RebalanceNone:
		return cfg, nil
	case RebalancePeriodic:
		if err := validateFrequency(frequency); err != nil {
			return RebalancingConfig{}, err
		}
		cfg.frequency = frequency
	case RebalanceDrift:
		if err := validateThreshold(driftThreshold); err != nil {
			return RebalancingConfig{}, err
		}
		cfg.driftThreshold = driftThreshold
	case RebalanceHybrid:
		if err := validateFrequency(frequency); err != nil {
			return RebalancingConfig{}, err
		}
		if err := validateThreshold(driftThreshold); err != nil {
			return RebalancingConfig{}, err
		}
		cfg.frequency = frequency
		cfg.driftThreshold = driftThreshold
	default:
		return RebalancingConfig{}, InvalidPortfolio("unknown rebalancing type %q", kind)
	}

	return cfg, nil
}

// NoRebalancing returns the buy-and-hold configuration
func NoRebalancing() RebalancingConfig {
	return RebalancingConfig{kind: RebalanceNone}
}

func validateFrequency(f RebalanceFrequency) error {
	switch f {
	case FrequencyMonthly, FrequencyQuarterly:
		return nil
	case "":
		return InvalidPortfolio("rebalancing frequency is required")
	default:
		return InvalidPortfolio("unknown rebalancing frequency %q", f)
	}
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 || t >= 1 {
		return InvalidPortfolio("drift_threshold must be in (0, 1), got %v", t)
	}
	return nil
}

// Type returns the policy type (NONE for the zero value)
func (c RebalancingConfig) Type() RebalanceType {
	if c.kind == "" {
		return RebalanceNone
	}
	return c.kind
}

// Frequency returns the periodic cadence, empty unless PERIODIC or HYBRID
func (c RebalancingConfig) Frequency() RebalanceFrequency { return c.frequency }

// DriftThreshold returns the absolute weight deviation that triggers DRIFT
func (c RebalancingConfig) DriftThreshold() float64 { return c.driftThreshold }

// CostRate returns the transaction cost charged per unit of turnover
func (c RebalancingConfig) CostRate() float64 { return c.costRate }

type rebalancingConfigJSON struct {
	Type           RebalanceType      `json:"type"`
	Frequency      RebalanceFrequency `json:"frequency,omitempty"`
	DriftThreshold float64            `json:"drift_threshold,omitempty"`
	CostRate       float64            `json:"cost_rate"`
}

// MarshalJSON implements json.Marshaler
func (c RebalancingConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(rebalancingConfigJSON{
		Type:           c.Type(),
		Frequency:      c.frequency,
		DriftThreshold: c.driftThreshold,
		CostRate:       c.costRate,
	})
}

// UnmarshalJSON implements json.Unmarshaler; input goes through the constructor
func (c *RebalancingConfig) UnmarshalJSON(data []byte) error {
	var raw rebalancingConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg, err := NewRebalancingConfig(raw.Type, raw.Frequency, raw.DriftThreshold, raw.CostRate)
	if err != nil {
		return err
	}
	*c = cfg
	return nil
}
