package pricedata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/lens/backend/internal/contracts"
)

// CSVProvider reads <dir>/<item_key>.csv files with a "date,close" header.
// Dates are YYYY-MM-DD. A missing file is an empty series.
type CSVProvider struct {
	dir string
}

// NewCSVProvider creates a provider rooted at dir
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// GetSeries implements contracts.PriceProvider
func (p *CSVProvider) GetSeries(_ context.Context, itemKey string, start, end time.Time) (contracts.PriceSeries, error) {
	if strings.ContainsAny(itemKey, `/\`) || strings.Contains(itemKey, "..") {
		return contracts.PriceSeries{}, fmt.Errorf("invalid item key %q", itemKey)
	}

	path := filepath.Join(p.dir, itemKey+".csv")
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return contracts.PriceSeries{ItemKey: itemKey}, nil
	}
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	prices, err := readCSV(f, start, end)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("read %s: %w", path, err)
	}
	return contracts.NewPriceSeries(itemKey, prices), nil
}

func readCSV(r io.Reader, start, end time.Time) (map[time.Time]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return map[time.Time]float64{}, nil
	}
	if err != nil {
		return nil, err
	}

	dateCol, closeCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date":
			dateCol = i
		case "close", "close_price", "price":
			closeCol = i
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, fmt.Errorf("header must contain date and close columns")
	}

	start, end = contracts.NormalizeDate(start), contracts.NormalizeDate(end)
	prices := make(map[time.Time]float64)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		date, err := contracts.ParseDate(strings.TrimSpace(record[dateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if date.Before(start) || date.After(end) {
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(record[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		prices[date] = price
	}
	return prices, nil
}
