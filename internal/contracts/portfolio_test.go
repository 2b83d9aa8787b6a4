package contracts

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPortfolioSpec(t *testing.T) {
	tests := []struct {
		name    string
		items   []PortfolioItem
		wantErr bool
	}{
		{
			name:  "valid two items",
			items: []PortfolioItem{{"005930", 0.6}, {"000660", 0.4}},
		},
		{
			name:  "within tolerance",
			items: []PortfolioItem{{"A", 0.3333333}, {"B", 0.3333333}, {"C", 0.3333334}},
		},
		{name: "empty", items: nil, wantErr: true},
		{name: "sum below one", items: []PortfolioItem{{"A", 0.5}, {"B", 0.4}}, wantErr: true},
		{name: "negative weight", items: []PortfolioItem{{"A", 1.5}, {"B", -0.5}}, wantErr: true},
		{name: "duplicate key", items: []PortfolioItem{{"A", 0.5}, {"A", 0.5}}, wantErr: true},
		{name: "blank key", items: []PortfolioItem{{" ", 1.0}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := NewPortfolioSpec(tt.items)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidPortfolio))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.items), len(spec.Items))
		})
	}
}

func TestPortfolioSpec_KeysAndWeights(t *testing.T) {
	spec, err := NewPortfolioSpec([]PortfolioItem{{"A", 0.25}, {"B", 0.75}})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, spec.Keys())
	assert.Equal(t, []float64{0.25, 0.75}, spec.Weights())
	assert.InDelta(t, 1.0, spec.TotalWeight(), 1e-12)
}

func TestNewRebalancingConfig(t *testing.T) {
	tests := []struct {
		name      string
		kind      RebalanceType
		freq      RebalanceFrequency
		threshold float64
		cost      float64
		wantErr   bool
		wantFreq  RebalanceFrequency
	}{
		{name: "none clears fields", kind: RebalanceNone, freq: FrequencyMonthly, threshold: 0.1},
		{name: "empty type means none", kind: ""},
		{name: "periodic monthly", kind: RebalancePeriodic, freq: FrequencyMonthly, wantFreq: FrequencyMonthly},
		{name: "periodic lower case", kind: "periodic", freq: "quarterly", wantFreq: FrequencyQuarterly},
		{name: "periodic without frequency", kind: RebalancePeriodic, wantErr: true},
		{name: "drift", kind: RebalanceDrift, threshold: 0.05},
		{name: "drift without threshold", kind: RebalanceDrift, wantErr: true},
		{name: "hybrid", kind: RebalanceHybrid, freq: FrequencyQuarterly, threshold: 0.05, wantFreq: FrequencyQuarterly},
		{name: "hybrid missing frequency", kind: RebalanceHybrid, threshold: 0.05, wantErr: true},
		{name: "negative cost", kind: RebalanceNone, cost: -0.01, wantErr: true},
		{name: "cost rate of one", kind: RebalanceNone, cost: 1, wantErr: true},
		{name: "cost below one", kind: RebalanceNone, cost: 0.99},
		{name: "unknown type", kind: "WEEKLY", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewRebalancingConfig(tt.kind, tt.freq, tt.threshold, tt.cost)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPortfolio)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFreq, cfg.Frequency())
		})
	}
}

func TestRebalancingConfig_JSON(t *testing.T) {
	cfg, err := NewRebalancingConfig(RebalanceHybrid, FrequencyMonthly, 0.05, 0.001)
	require.NoError(t, err)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"HYBRID","frequency":"MONTHLY","drift_threshold":0.05,"cost_rate":0.001}`, string(data))

	var decoded RebalancingConfig
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, cfg, decoded)

	err = json.Unmarshal([]byte(`{"type":"DRIFT","cost_rate":0}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidPortfolio)
}

func TestRebalancingConfig_ZeroValue(t *testing.T) {
	var cfg RebalancingConfig
	assert.Equal(t, RebalanceNone, cfg.Type())
	assert.Equal(t, 0.0, cfg.CostRate())
}

func TestNewInputExtension(t *testing.T) {
	ext, err := NewInputExtension("etf", "usd", "total")
	require.NoError(t, err)
	assert.Equal(t, AssetClassETF, ext.AssetClass())
	assert.Equal(t, CurrencyUSD, ext.Currency())
	assert.Equal(t, ReturnTypeTotal, ext.ReturnType())

	ext, err = NewInputExtension("", "", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultInputExtension(), ext)

	_, err = NewInputExtension(AssetClassBond, CurrencyUSD, ReturnTypeTotal)
	assert.ErrorIs(t, err, ErrUnsupportedInput)

	var decoded InputExtension
	err = json.Unmarshal([]byte(`{"asset_class":"EQUITY","currency":"KRW","return_type":"TOTAL"}`), &decoded)
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestPriceSeries(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 15, 30, 0, 0, time.UTC) }
	series := NewPriceSeries("A", map[time.Time]float64{d(3): 103, d(1): 101, d(2): 102})

	require.Equal(t, 3, series.Len())
	assert.Equal(t, NormalizeDate(d(1)), series.Points[0].Date)
	assert.Equal(t, NormalizeDate(d(3)), series.Points[2].Date)

	price, ok := series.PriceAt(d(2))
	assert.True(t, ok)
	assert.Equal(t, 102.0, price)

	_, ok = series.PriceAt(d(4))
	assert.False(t, ok)

	first, ok := series.First()
	assert.True(t, ok)
	assert.Equal(t, 101.0, first.Price)
}

func TestUserMessage(t *testing.T) {
	err := InvalidPeriod("start %s is after end %s", "2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	assert.True(t, IsEngineError(err))
	assert.Equal(t, "invalid period: start 2024-02-01 is after end 2024-01-01", UserMessage(err))

	assert.Equal(t, "internal error", UserMessage(errors.New("pq: connection refused")))
}
