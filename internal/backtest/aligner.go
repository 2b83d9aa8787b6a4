package backtest

import (
	"sort"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
)

// AlignedSeries is the common trading calendar of several instruments
// with their prices indexed to it: Prices[i][t] is instrument i on Dates[t].
type AlignedSeries struct {
	Keys   []string
	Dates  []time.Time
	Prices [][]float64
}

// Len returns the number of aligned dates
func (a *AlignedSeries) Len() int {
	return len(a.Dates)
}

// Start returns the first aligned date
func (a *AlignedSeries) Start() time.Time {
	return a.Dates[0]
}

// End returns the last aligned date
func (a *AlignedSeries) End() time.Time {
	return a.Dates[len(a.Dates)-1]
}

// AlignDates returns the sorted intersection of the series' dates.
// ⭐ SSOT: 거래일 교집합 계산은 여기서만
func AlignDates(series ...contracts.PriceSeries) ([]time.Time, error) {
	if len(series) == 0 {
		return nil, contracts.InsufficientData("no price series to align")
	}

	// 날짜는 UTC 자정으로 정규화해서 비교 (정렬/중복 여부와 무관)
	counts := make(map[time.Time]int, series[0].Len())
	for _, s := range series {
		seen := make(map[time.Time]struct{}, s.Len())
		for _, p := range s.Points {
			d := contracts.NormalizeDate(p.Date)
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			counts[d]++
		}
	}

	common := make([]time.Time, 0, series[0].Len())
	for d, n := range counts {
		if n == len(series) {
			common = append(common, d)
		}
	}

	if len(common) < 2 {
		return nil, contracts.InsufficientData("only %d overlapping trading dates across %d series", len(common), len(series))
	}

	sort.Slice(common, func(i, j int) bool {
		return common[i].Before(common[j])
	})
	return common, nil
}

// Align intersects the series and builds price vectors on the common calendar
func Align(series ...contracts.PriceSeries) (*AlignedSeries, error) {
	dates, err := AlignDates(series...)
	if err != nil {
		return nil, err
	}

	aligned := &AlignedSeries{
		Keys:   make([]string, len(series)),
		Dates:  dates,
		Prices: make([][]float64, len(series)),
	}

	for i, s := range series {
		aligned.Keys[i] = s.ItemKey
		byDate := make(map[time.Time]float64, s.Len())
		for _, p := range s.Points {
			d := contracts.NormalizeDate(p.Date)
			if _, dup := byDate[d]; !dup {
				byDate[d] = p.Price
			}
		}

		prices := make([]float64, len(dates))
		for t, d := range dates {
			prices[t] = byDate[d]
		}
		aligned.Prices[i] = prices
	}

	return aligned, nil
}
