package pricedata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/lens/backend/internal/contracts"
)

// Repository reads daily closes from data.daily_prices
// ⭐ SSOT: 가격 데이터 DB 조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSeries implements contracts.PriceProvider
func (r *Repository) GetSeries(ctx context.Context, itemKey string, start, end time.Time) (contracts.PriceSeries, error) {
	query := `
		SELECT trade_date, close_price
		FROM data.daily_prices
		WHERE stock_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, itemKey, start, end)
	if err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("query prices for %s: %w", itemKey, err)
	}
	defer rows.Close()

	prices := make(map[time.Time]float64)
	for rows.Next() {
		var (
			date       time.Time
			closePrice float64
		)
		if err := rows.Scan(&date, &closePrice); err != nil {
			return contracts.PriceSeries{}, fmt.Errorf("scan price for %s: %w", itemKey, err)
		}
		prices[date] = closePrice
	}
	if err := rows.Err(); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("iterate prices for %s: %w", itemKey, err)
	}

	return contracts.NewPriceSeries(itemKey, prices), nil
}
