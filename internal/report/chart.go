package report

import (
	"fmt"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/wonny/lens/backend/internal/contracts"
)

// chart dimensions in pixels
const (
	chartWidth  = 1000
	chartHeight = 600
)

// NAVChart renders the NAV path as a PNG line chart.
// The subtitle lists metrics as plain numbers with no judgement labels.
func NAVChart(title string, nav []contracts.NAVPoint, metrics contracts.PerformanceMetrics) ([]byte, error) {
	if len(nav) < 2 {
		return nil, fmt.Errorf("chart needs at least 2 NAV points, got %d", len(nav))
	}

	labels := make([]string, len(nav))
	values := make([]float64, len(nav))
	minVal, maxVal := nav[0].NAV, nav[0].NAV
	for i, p := range nav {
		labels[i] = p.Date.Format(contracts.DateLayout)
		values[i] = p.NAV
		if p.NAV < minVal {
			minVal = p.NAV
		}
		if p.NAV > maxVal {
			maxVal = p.NAV
		}
	}

	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	yMin := minVal - padding
	yMax := maxVal + padding

	splitNum := 6
	if len(labels) <= 30 {
		splitNum = len(labels) / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}

	subtitle := fmt.Sprintf("Cumulative: %s | CAGR: %s | Vol: %s | MDD: %s",
		Percent(metrics.CumulativeReturn), Percent(metrics.AnnualizedReturn),
		Percent(metrics.Volatility), Percent(metrics.MaxDrawdown))

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        labels,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"NAV"}}),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}
