package pricedata

import (
	"context"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
)

// StaticProvider serves fixed in-memory series
type StaticProvider struct {
	series map[string]contracts.PriceSeries
}

// NewStaticProvider creates a provider over series keyed by ItemKey
func NewStaticProvider(series ...contracts.PriceSeries) *StaticProvider {
	p := &StaticProvider{series: make(map[string]contracts.PriceSeries, len(series))}
	for _, s := range series {
		p.series[s.ItemKey] = s
	}
	return p
}

// GetSeries implements contracts.PriceProvider
func (p *StaticProvider) GetSeries(_ context.Context, itemKey string, start, end time.Time) (contracts.PriceSeries, error) {
	s, ok := p.series[itemKey]
	if !ok {
		return contracts.PriceSeries{ItemKey: itemKey}, nil
	}

	start, end = contracts.NormalizeDate(start), contracts.NormalizeDate(end)
	out := contracts.PriceSeries{ItemKey: itemKey}
	for _, pt := range s.Points {
		if pt.Date.Before(start) || pt.Date.After(end) {
			continue
		}
		out.Points = append(out.Points, pt)
	}
	return out, nil
}
