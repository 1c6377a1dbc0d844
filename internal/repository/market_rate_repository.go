package repository

import (
	"context"
	"database/sql"
	"errors"

	"fxtrade/internal/models"
)

// Ошибки репозитория курсов
var (
	ErrRateNotFound = errors.New("market rate not found")
)

// MarketRateRepository - работа с таблицей market_rates
//
// Для движка исполнения таблица read-only: запись курсов выполняет
// внешний загрузчик котировок.
type MarketRateRepository struct {
	db *sql.DB
}

// NewMarketRateRepository создает новый экземпляр репозитория
func NewMarketRateRepository(db *sql.DB) *MarketRateRepository {
	return &MarketRateRepository{db: db}
}

const marketRateColumns = `id, pair, base_currency, quote_currency, rate, bid, ask, created_at, updated_at`

// GetByPair возвращает сохраненный курс пары ("GBP/EUR")
func (r *MarketRateRepository) GetByPair(ctx context.Context, pair string) (*models.MarketRate, error) {
	query := `
		SELECT ` + marketRateColumns + `
		FROM market_rates
		WHERE pair = $1`

	rate := &models.MarketRate{}
	err := r.db.QueryRowContext(ctx, query, pair).Scan(
		&rate.ID,
		&rate.Pair,
		&rate.BaseCurrency,
		&rate.QuoteCurrency,
		&rate.Rate,
		&rate.Bid,
		&rate.Ask,
		&rate.CreatedAt,
		&rate.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRateNotFound
		}
		return nil, err
	}

	return rate, nil
}
