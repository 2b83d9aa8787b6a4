package portfolioconfig

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/wonny/lens/backend/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
// 실패 시 error 반환 (평가 시작 전)
func Validate(cfg *Config) error {
	// === Meta ===
	if strings.TrimSpace(cfg.Meta.PortfolioID) == "" {
		return ValidationError{"meta.portfolio_id", "required"}
	}

	// === Period ===
	start, err := contracts.ParseDate(cfg.Period.Start)
	if err != nil {
		return ValidationError{"period.start", "must be YYYY-MM-DD"}
	}
	end, err := contracts.ParseDate(cfg.Period.End)
	if err != nil {
		return ValidationError{"period.end", "must be YYYY-MM-DD"}
	}
	if start.After(end) {
		return ValidationError{"period", "start must not be after end"}
	}

	// === Items ===
	if len(cfg.Items) == 0 {
		return ValidationError{"items", "at least one item required"}
	}
	seen := make(map[string]bool, len(cfg.Items))
	weights := make([]float64, len(cfg.Items))
	for i, it := range cfg.Items {
		field := fmt.Sprintf("items[%d]", i)
		if strings.TrimSpace(it.ItemKey) == "" {
			return ValidationError{field + ".item_key", "required"}
		}
		if seen[it.ItemKey] {
			return ValidationError{field + ".item_key", fmt.Sprintf("duplicate %q", it.ItemKey)}
		}
		seen[it.ItemKey] = true
		if it.Weight < 0 || math.IsNaN(it.Weight) {
			return ValidationError{field + ".weight", "must be >= 0"}
		}
		weights[i] = it.Weight
	}
	if err := validateWeightsSum(weights, 1.0, contracts.WeightSumTolerance); err != nil {
		return ValidationError{"items.weight", err.Error()}
	}

	// === Rebalancing ===
	if _, err := contracts.NewRebalancingConfig(
		contracts.RebalanceType(cfg.Rebalancing.Type),
		contracts.RebalanceFrequency(cfg.Rebalancing.Frequency),
		cfg.Rebalancing.DriftThreshold,
		cfg.Rebalancing.CostRate,
	); err != nil {
		return ValidationError{"rebalancing", contracts.UserMessage(err)}
	}

	// === Input ===
	if _, err := contracts.NewInputExtension(
		contracts.AssetClass(cfg.Input.AssetClass),
		contracts.Currency(cfg.Input.Currency),
		contracts.ReturnType(cfg.Input.ReturnType),
	); err != nil {
		return ValidationError{"input", contracts.UserMessage(err)}
	}

	// === Accounting ===
	switch cfg.Accounting {
	case "", "float", "decimal":
	default:
		return ValidationError{"accounting", "must be float or decimal"}
	}

	if rf := cfg.Metrics.RiskFreeRate; rf != nil && (math.IsNaN(*rf) || math.IsInf(*rf, 0)) {
		return ValidationError{"metrics.risk_free_rate", "must be finite"}
	}

	return nil
}

// validateWeightsSum checks that weights sum to target within tolerance
func validateWeightsSum(weights []float64, target, tolerance float64) error {
	if len(weights) == 0 {
		return errors.New("weights empty")
	}
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-target) > tolerance {
		return fmt.Errorf("must sum to %.1f, got %.6f", target, sum)
	}
	return nil
}
