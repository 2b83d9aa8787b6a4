package contracts

import (
	"context"
	"sort"
	"time"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// NormalizeDate truncates t to a UTC calendar date
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// PricePoint is a single (date, price) observation
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceSeries holds the chronological price history of one instrument
// ⭐ SSOT: 엔진은 PriceSeries를 절대 수정하지 않음 (호출자 소유)
type PriceSeries struct {
	ItemKey string       `json:"item_key"`
	Points  []PricePoint `json:"points"`
}

// NewPriceSeries builds a series from a date → price mapping.
// Dates are normalized and sorted; later duplicates of a normalized date win.
func NewPriceSeries(itemKey string, prices map[time.Time]float64) PriceSeries {
	byDate := make(map[time.Time]float64, len(prices))
	for d, p := range prices {
		byDate[NormalizeDate(d)] = p
	}

	points := make([]PricePoint, 0, len(byDate))
	for d, p := range byDate {
		points = append(points, PricePoint{Date: d, Price: p})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	return PriceSeries{ItemKey: itemKey, Points: points}
}

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// IsEmpty reports whether the series has no observations
func (s PriceSeries) IsEmpty() bool {
	return len(s.Points) == 0
}

// PriceAt returns the price on the given date
func (s PriceSeries) PriceAt(date time.Time) (float64, bool) {
	date = NormalizeDate(date)
	idx := sort.Search(len(s.Points), func(i int) bool {
		return !s.Points[i].Date.Before(date)
	})
	if idx < len(s.Points) && s.Points[idx].Date.Equal(date) {
		return s.Points[idx].Price, true
	}
	return 0, false
}

// First returns the earliest observation
func (s PriceSeries) First() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[0], true
}

// Last returns the latest observation
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s.Points) == 0 {
		return PricePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// PriceProvider supplies historical prices for an instrument.
// An unknown key or an empty range yields an empty series, not an error.
type PriceProvider interface {
	GetSeries(ctx context.Context, itemKey string, start, end time.Time) (PriceSeries, error)
}

// NAVPoint is one point of the simulated net asset value path
type NAVPoint struct {
	Date time.Time `json:"date"`
	NAV  float64   `json:"nav"`
}

// NAVValues extracts the NAV values of a series
func NAVValues(points []NAVPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.NAV
	}
	return values
}
