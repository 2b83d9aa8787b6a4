package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/lens/backend/internal/contracts"
)

// decimalPlaces is the division precision of the fixed-precision ledger
const decimalPlaces int32 = 18

// runDecimal is runFloat with units and values held in decimals.
// 부동소수점 누적 오차 없이 재현 가능한 결과가 필요한 경우 사용
func runDecimal(a *AlignedSeries, cfg Config, policy Policy) (*Simulation, error) {
	n, m := a.Len(), len(a.Keys)

	weights := make([]decimal.Decimal, m)
	for i, w := range cfg.Weights {
		weights[i] = decimal.NewFromFloat(w)
	}
	costRate := decimal.NewFromFloat(cfg.Rebalancing.CostRate())

	prices := make([][]decimal.Decimal, m)
	for i := 0; i < m; i++ {
		prices[i] = make([]decimal.Decimal, n)
		for t := 0; t < n; t++ {
			prices[i][t] = decimal.NewFromFloat(a.Prices[i][t])
		}
	}

	units := make([]decimal.Decimal, m)
	for i := 0; i < m; i++ {
		if prices[i][0].Sign() <= 0 {
			return nil, contracts.InsufficientData("non-positive starting price %v for %s on %s",
				a.Prices[i][0], a.Keys[i], a.Dates[0].Format(contracts.DateLayout))
		}
		units[i] = weights[i].DivRound(prices[i][0], decimalPlaces)
	}

	sim := &Simulation{NAV: make([]contracts.NAVPoint, 0, n)}
	sim.NAV = append(sim.NAV, contracts.NAVPoint{Date: a.Dates[0], NAV: markDecimal(units, prices, 0).InexactFloat64()})

	totalCost := decimal.Zero
	current := make([]float64, m)
	floatWeights := cfg.Weights

	for t := 1; t < n; t++ {
		if policy.NeedsWeights() {
			total := markDecimal(units, prices, t)
			if total.Sign() <= 0 {
				return nil, contracts.InsufficientData("portfolio value is not positive on %s", a.Dates[t].Format(contracts.DateLayout))
			}
			for i := 0; i < m; i++ {
				current[i] = units[i].Mul(prices[i][t]).DivRound(total, decimalPlaces).InexactFloat64()
			}
		}

		if fire, reason := policy.Evaluate(a.Dates[t-1], a.Dates[t], current, floatWeights); fire {
			for i := 0; i < m; i++ {
				if prices[i][t].Sign() <= 0 {
					return nil, contracts.InsufficientData("non-positive price %v for %s on rebalance date %s",
						a.Prices[i][t], a.Keys[i], a.Dates[t].Format(contracts.DateLayout))
				}
			}

			total := markDecimal(units, prices, t)
			turnover := decimal.Zero
			for i := 0; i < m; i++ {
				turnover = turnover.Add(weights[i].Mul(total).Sub(units[i].Mul(prices[i][t])).Abs())
			}
			cost := costRate.Mul(turnover)
			after := total.Sub(cost)
			if after.Sign() <= 0 {
				return nil, contracts.InsufficientData("rebalancing cost %v exhausts portfolio value %v on %s",
					cost, total, a.Dates[t].Format(contracts.DateLayout))
			}
			for i := 0; i < m; i++ {
				units[i] = weights[i].Mul(after).DivRound(prices[i][t], decimalPlaces)
			}

			totalCost = totalCost.Add(cost)
			sim.Rebalances = append(sim.Rebalances, RebalanceEvent{
				Date:        a.Dates[t],
				Reason:      reason,
				ValueBefore: total.InexactFloat64(),
				Turnover:    turnover.InexactFloat64(),
				Cost:        cost.InexactFloat64(),
			})
		}

		sim.NAV = append(sim.NAV, contracts.NAVPoint{Date: a.Dates[t], NAV: markDecimal(units, prices, t).InexactFloat64()})
	}

	sim.TotalCost = totalCost.InexactFloat64()
	sim.FinalUnits = make([]float64, m)
	for i, u := range units {
		sim.FinalUnits[i] = u.InexactFloat64()
	}
	return sim, nil
}

// markDecimal returns Σ units[i] × prices[i][t]
func markDecimal(units []decimal.Decimal, prices [][]decimal.Decimal, t int) decimal.Decimal {
	total := decimal.Zero
	for i, u := range units {
		total = total.Add(u.Mul(prices[i][t]))
	}
	return total
}
