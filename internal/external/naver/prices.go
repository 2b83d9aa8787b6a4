package naver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/lens/backend/internal/contracts"
)

var dateRe = regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`)

// dailyPage is one parsed page of the daily price table
type dailyPage struct {
	prices  map[time.Time]float64
	oldest  time.Time
	hasMore bool
}

// GetSeries implements contracts.PriceProvider from the daily price pages.
// Pages are newest first; paging stops once a page reaches start.
// ⭐ SSOT: Naver 일별 시세 스크래핑은 이 함수에서만
func (c *Client) GetSeries(ctx context.Context, itemKey string, start, end time.Time) (contracts.PriceSeries, error) {
	start, end = contracts.NormalizeDate(start), contracts.NormalizeDate(end)
	prices := make(map[time.Time]float64)

	for page := 1; page <= c.maxPages; page++ {
		select {
		case <-ctx.Done():
			return contracts.PriceSeries{}, ctx.Err()
		default:
		}

		params := url.Values{}
		params.Set("code", itemKey)
		params.Set("page", strconv.Itoa(page))

		html, err := c.fetchHTML(ctx, "/item/sise_day.naver", params)
		if err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("fetch %s page %d: %w", itemKey, page, err)
		}

		parsed, err := parseDailyPage(html)
		if err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("parse %s page %d: %w", itemKey, page, err)
		}

		for d, p := range parsed.prices {
			if d.Before(start) || d.After(end) {
				continue
			}
			prices[d] = p
		}

		if len(parsed.prices) == 0 || !parsed.hasMore || !parsed.oldest.After(start) {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"item_key": itemKey,
		"count":    len(prices),
	}).Debug("Fetched daily prices")

	return contracts.NewPriceSeries(itemKey, prices), nil
}

// parseDailyPage reads (date, close) rows of table.type2
func parseDailyPage(html string) (*dailyPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	page := &dailyPage{prices: make(map[time.Time]float64)}

	doc.Find("table.type2").First().Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}

		dateText := strings.TrimSpace(cells.Eq(0).Text())
		if !dateRe.MatchString(dateText) {
			return
		}
		date, err := time.ParseInLocation("2006.01.02", dateText, time.UTC)
		if err != nil {
			return
		}

		closePrice, ok := parseNumber(cells.Eq(1).Text())
		if !ok {
			return
		}

		page.prices[date] = closePrice
		if page.oldest.IsZero() || date.Before(page.oldest) {
			page.oldest = date
		}
	})

	// 마지막 페이지에는 "맨뒤" 링크가 없음
	page.hasMore = doc.Find("td.pgRR").Length() > 0
	return page, nil
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
