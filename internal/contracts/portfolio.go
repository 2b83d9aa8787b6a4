package contracts

import (
	"math"
	"strings"
)

// WeightSumTolerance bounds |Σweights − 1| for a valid PortfolioSpec
const WeightSumTolerance = 1e-6

// PortfolioItem is one (item_key, weight) pair
type PortfolioItem struct {
	ItemKey string  `json:"item_key" yaml:"item_key"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// PortfolioSpec is the ordered list of target allocations
// ⭐ 계약: 가중치 합 = 1.0 (허용오차 내), 자동 정규화하지 않음
type PortfolioSpec struct {
	Items []PortfolioItem `json:"items"`
}

// NewPortfolioSpec validates and builds a PortfolioSpec
func NewPortfolioSpec(items []PortfolioItem) (PortfolioSpec, error) {
	spec := PortfolioSpec{Items: append([]PortfolioItem(nil), items...)}
	if err := spec.Validate(); err != nil {
		return PortfolioSpec{}, err
	}
	return spec, nil
}

// Validate checks keys and weights
func (p PortfolioSpec) Validate() error {
	if len(p.Items) == 0 {
		return InvalidPortfolio("portfolio has no items")
	}

	seen := make(map[string]struct{}, len(p.Items))
	for i, item := range p.Items {
		key := strings.TrimSpace(item.ItemKey)
		if key == "" {
			return InvalidPortfolio("item %d has an empty key", i)
		}
		if _, dup := seen[key]; dup {
			return InvalidPortfolio("duplicate item key %q", key)
		}
		seen[key] = struct{}{}

		if math.IsNaN(item.Weight) || math.IsInf(item.Weight, 0) || item.Weight < 0 {
			return InvalidPortfolio("item %q has invalid weight %v", key, item.Weight)
		}
	}

	if sum := p.TotalWeight(); math.Abs(sum-1.0) > WeightSumTolerance {
		return InvalidPortfolio("weights must sum to 1, got %.8f", sum)
	}
	return nil
}

// TotalWeight returns Σ weights
func (p PortfolioSpec) TotalWeight() float64 {
	total := 0.0
	for _, item := range p.Items {
		total += item.Weight
	}
	return total
}

// Keys returns item keys in spec order
func (p PortfolioSpec) Keys() []string {
	keys := make([]string, len(p.Items))
	for i, item := range p.Items {
		keys[i] = item.ItemKey
	}
	return keys
}

// Weights returns weights in spec order
func (p PortfolioSpec) Weights() []float64 {
	weights := make([]float64, len(p.Items))
	for i, item := range p.Items {
		weights[i] = item.Weight
	}
	return weights
}
