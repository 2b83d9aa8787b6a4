package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/lens/backend/internal/contracts"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func series(key string, dates []time.Time, prices []float64) contracts.PriceSeries {
	m := make(map[time.Time]float64, len(dates))
	for i, d := range dates {
		m[d] = prices[i]
	}
	return contracts.NewPriceSeries(key, m)
}

func mustRebalancing(t *testing.T, kind contracts.RebalanceType, freq contracts.RebalanceFrequency, threshold, cost float64) contracts.RebalancingConfig {
	t.Helper()
	cfg, err := contracts.NewRebalancingConfig(kind, freq, threshold, cost)
	require.NoError(t, err)
	return cfg
}

func TestAlignDates(t *testing.T) {
	a := series("A", []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 5)}, []float64{1, 2, 3, 5})
	b := series("B", []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4), day(2024, 1, 5)}, []float64{20, 30, 40, 50})

	dates, err := AlignDates(a, b)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 5)}, dates)

	aligned, err := Align(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, aligned.Keys)
	assert.Equal(t, []float64{2, 3, 5}, aligned.Prices[0])
	assert.Equal(t, []float64{20, 30, 50}, aligned.Prices[1])
	assert.Equal(t, day(2024, 1, 2), aligned.Start())
	assert.Equal(t, day(2024, 1, 5), aligned.End())
}

func TestAlign_UnsortedLiteralSeries(t *testing.T) {
	kst := time.FixedZone("KST", 9*3600)
	a := contracts.PriceSeries{ItemKey: "A", Points: []contracts.PricePoint{
		{Date: day(2024, 1, 3), Price: 3},
		{Date: day(2024, 1, 1), Price: 1},
		{Date: day(2024, 1, 2), Price: 2},
		{Date: day(2024, 1, 1), Price: 99},
	}}
	b := contracts.PriceSeries{ItemKey: "B", Points: []contracts.PricePoint{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, kst), Price: 20},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, kst), Price: 30},
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, kst), Price: 10},
	}}

	aligned, err := Align(a, b)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3)}, aligned.Dates)
	assert.Equal(t, []float64{1, 2, 3}, aligned.Prices[0])
	assert.Equal(t, []float64{10, 20, 30}, aligned.Prices[1])
}

func TestAlignDates_Insufficient(t *testing.T) {
	a := series("A", []time.Time{day(2024, 1, 1), day(2024, 1, 2)}, []float64{1, 2})
	b := series("B", []time.Time{day(2024, 1, 2), day(2024, 1, 3)}, []float64{1, 2})

	_, err := AlignDates(a, b)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = AlignDates()
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = Align(a, contracts.PriceSeries{ItemKey: "EMPTY"})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestPolicy_Periodic(t *testing.T) {
	monthly := NewPolicy(mustRebalancing(t, contracts.RebalancePeriodic, contracts.FrequencyMonthly, 0, 0))
	quarterly := NewPolicy(mustRebalancing(t, contracts.RebalancePeriodic, contracts.FrequencyQuarterly, 0, 0))

	tests := []struct {
		name   string
		policy Policy
		prev   time.Time
		cur    time.Time
		want   bool
	}{
		{"monthly month end", monthly, day(2024, 1, 31), day(2024, 2, 1), true},
		{"monthly same month", monthly, day(2024, 2, 1), day(2024, 2, 2), false},
		{"monthly same month different year", monthly, day(2023, 2, 1), day(2024, 2, 1), true},
		{"quarterly crossing", quarterly, day(2024, 3, 29), day(2024, 4, 1), true},
		{"quarterly within quarter", quarterly, day(2024, 1, 15), day(2024, 3, 15), false},
		{"quarterly year end", quarterly, day(2023, 12, 29), day(2024, 1, 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fired, reason := tt.policy.Evaluate(tt.prev, tt.cur, nil, nil)
			assert.Equal(t, tt.want, fired)
			if tt.want {
				assert.Equal(t, ReasonPeriodic, reason)
			}
		})
	}
}

func TestPolicy_DriftAndHybrid(t *testing.T) {
	target := []float64{0.5, 0.5}
	drift := NewPolicy(mustRebalancing(t, contracts.RebalanceDrift, "", 0.05, 0))
	hybrid := NewPolicy(mustRebalancing(t, contracts.RebalanceHybrid, contracts.FrequencyMonthly, 0.05, 0))
	none := NewPolicy(contracts.NoRebalancing())

	fired, reason := drift.Evaluate(day(2024, 1, 1), day(2024, 1, 2), []float64{0.56, 0.44}, target)
	assert.True(t, fired)
	assert.Equal(t, ReasonDrift, reason)

	fired, _ = drift.Evaluate(day(2024, 1, 31), day(2024, 2, 1), []float64{0.54, 0.46}, target)
	assert.False(t, fired, "drift ignores calendar boundaries")

	fired, reason = hybrid.Evaluate(day(2024, 1, 31), day(2024, 2, 1), []float64{0.5, 0.5}, target)
	assert.True(t, fired)
	assert.Equal(t, ReasonPeriodic, reason)

	fired, reason = hybrid.Evaluate(day(2024, 2, 1), day(2024, 2, 2), []float64{0.40, 0.60}, target)
	assert.True(t, fired)
	assert.Equal(t, ReasonDrift, reason)

	fired, _ = hybrid.Evaluate(day(2024, 2, 1), day(2024, 2, 2), []float64{0.52, 0.48}, target)
	assert.False(t, fired)

	fired, _ = none.Evaluate(day(2024, 1, 31), day(2024, 2, 1), []float64{0.9, 0.1}, target)
	assert.False(t, fired)
}

func TestSimulator_BuyAndHoldDrift(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3)}
	aligned, err := Align(
		series("A", dates, []float64{100, 110}),
		series("B", dates, []float64{200, 180}),
	)
	require.NoError(t, err)

	for _, mode := range []Accounting{AccountingFloat, AccountingDecimal} {
		t.Run(string(mode), func(t *testing.T) {
			sim, err := NewSimulator(nil).Run(aligned, Config{
				Weights:     []float64{0.5, 0.5},
				Rebalancing: contracts.NoRebalancing(),
				Accounting:  mode,
			})
			require.NoError(t, err)

			require.Len(t, sim.NAV, 2)
			assert.InDelta(t, 1.0, sim.NAV[0].NAV, 1e-12)
			assert.InDelta(t, 1.0, sim.NAV[1].NAV, 1e-12)
			assert.InDelta(t, 0.005, sim.FinalUnits[0], 1e-15)
			assert.InDelta(t, 0.0025, sim.FinalUnits[1], 1e-15)
			assert.Equal(t, 0, sim.RebalanceCount())
		})
	}
}

func TestSimulator_LockstepInvariance(t *testing.T) {
	dates := []time.Time{
		day(2024, 1, 31), day(2024, 2, 29), day(2024, 3, 29),
		day(2024, 4, 30), day(2024, 5, 31), day(2024, 6, 28),
	}
	base := []float64{100, 110, 99, 120, 90, 130}
	scaled := func(k float64) []float64 {
		out := make([]float64, len(base))
		for i, p := range base {
			out[i] = p * k
		}
		return out
	}

	aligned, err := Align(
		series("A", dates, base),
		series("B", dates, scaled(2)),
		series("C", dates, scaled(0.5)),
	)
	require.NoError(t, err)

	configs := []contracts.RebalancingConfig{
		contracts.NoRebalancing(),
		mustRebalancing(t, contracts.RebalancePeriodic, contracts.FrequencyMonthly, 0, 0.01),
		mustRebalancing(t, contracts.RebalanceDrift, "", 0.01, 0.01),
		mustRebalancing(t, contracts.RebalanceHybrid, contracts.FrequencyQuarterly, 0.01, 0.01),
	}
	weightSets := [][]float64{{0.2, 0.3, 0.5}, {0.6, 0.2, 0.2}, {1.0, 0, 0}}

	for _, rb := range configs {
		for _, w := range weightSets {
			sim, err := NewSimulator(nil).Run(aligned, Config{Weights: w, Rebalancing: rb})
			require.NoError(t, err)

			for i, point := range sim.NAV {
				assert.InDelta(t, base[i]/base[0], point.NAV, 1e-9, "policy=%s weights=%v t=%d", rb.Type(), w, i)
			}
			assert.InDelta(t, 0.0, sim.TotalCost, 1e-12)
		}
	}
}

func TestSimulator_RebalanceCost(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3), day(2024, 1, 4)}
	aligned, err := Align(
		series("A", dates, []float64{100, 100, 100}),
		series("B", dates, []float64{100, 200, 200}),
	)
	require.NoError(t, err)

	cfg := Config{
		Weights:     []float64{0.5, 0.5},
		Rebalancing: mustRebalancing(t, contracts.RebalanceDrift, "", 0.1, 0.01),
	}

	for _, mode := range []Accounting{AccountingFloat, AccountingDecimal} {
		t.Run(string(mode), func(t *testing.T) {
			cfg.Accounting = mode
			sim, err := NewSimulator(nil).Run(aligned, cfg)
			require.NoError(t, err)

			require.Equal(t, 1, sim.RebalanceCount())
			event := sim.Rebalances[0]
			assert.Equal(t, day(2024, 1, 3), event.Date)
			assert.Equal(t, ReasonDrift, event.Reason)
			assert.InDelta(t, 1.5, event.ValueBefore, 1e-12)
			assert.InDelta(t, 0.5, event.Turnover, 1e-12)
			assert.InDelta(t, 0.005, event.Cost, 1e-12)
			assert.InDelta(t, 0.005, sim.TotalCost, 1e-12)

			assert.InDelta(t, 1.495, sim.NAV[1].NAV, 1e-12)
			assert.InDelta(t, 1.495, sim.NAV[2].NAV, 1e-12)
		})
	}
}

func TestSimulator_CostExhaustsValue(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3)}
	aligned, err := Align(
		series("A", dates, []float64{100, 1e6}),
		series("B", dates, []float64{100, 100}),
	)
	require.NoError(t, err)

	// turnover is ~1.8× the value, so a 0.6 cost rate would drive NAV negative
	cfg := Config{
		Weights:     []float64{0.1, 0.9},
		Rebalancing: mustRebalancing(t, contracts.RebalanceDrift, "", 0.1, 0.6),
	}

	for _, mode := range []Accounting{AccountingFloat, AccountingDecimal} {
		t.Run(string(mode), func(t *testing.T) {
			cfg.Accounting = mode
			_, err := NewSimulator(nil).Run(aligned, cfg)
			assert.ErrorIs(t, err, contracts.ErrInsufficientData)
		})
	}
}

func TestSimulator_NonPositivePrices(t *testing.T) {
	dates := []time.Time{day(2024, 1, 31), day(2024, 2, 1)}

	aligned, err := Align(
		series("A", dates, []float64{0, 10}),
		series("B", dates, []float64{10, 10}),
	)
	require.NoError(t, err)
	_, err = NewSimulator(nil).Run(aligned, Config{Weights: []float64{0.5, 0.5}})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	aligned, err = Align(
		series("A", dates, []float64{10, 0}),
		series("B", dates, []float64{10, 10}),
	)
	require.NoError(t, err)

	monthly := mustRebalancing(t, contracts.RebalancePeriodic, contracts.FrequencyMonthly, 0, 0)
	_, err = NewSimulator(nil).Run(aligned, Config{Weights: []float64{0.5, 0.5}, Rebalancing: monthly})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	// buy-and-hold never divides by the later price
	sim, err := NewSimulator(nil).Run(aligned, Config{Weights: []float64{0.5, 0.5}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sim.NAV[1].NAV, 1e-12)
}

func TestSimulator_WeightCountMismatch(t *testing.T) {
	dates := []time.Time{day(2024, 1, 2), day(2024, 1, 3)}
	aligned, err := Align(series("A", dates, []float64{1, 2}))
	require.NoError(t, err)

	_, err = NewSimulator(nil).Run(aligned, Config{Weights: []float64{0.5, 0.5}})
	assert.ErrorIs(t, err, contracts.ErrInvalidPortfolio)
}
