package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"fxtrade/internal/models"
)

// Ошибки репозитория сделок
var (
	ErrTradeNotFound = errors.New("trade not found")
)

// UniqueClientOrderIDConstraint - имя unique constraint'а на идемпотентный
// токен. По нему движок распознает гонку двух одновременных запросов с
// одним client_order_id.
const UniqueClientOrderIDConstraint = "trades_client_order_id_key"

// TradeRepository - работа с таблицей trades
//
// Сделки только создаются и читаются: обновления и удаления в ядре нет.
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

const tradeColumns = `id, user_id, from_account_id, to_account_id, from_currency, to_currency,
		from_amount, to_amount, rate, side, status, client_order_id, executed_at, created_at, updated_at`

// Create вставляет запись о сделке внутри транзакции движка
//
// Нарушение уникальности client_order_id возвращается как есть
// (*pq.Error, код 23505) - его классифицирует вызывающая сторона.
func (r *TradeRepository) Create(ctx context.Context, tx *sql.Tx, trade *models.Trade) error {
	query := `
		INSERT INTO trades (user_id, from_account_id, to_account_id, from_currency, to_currency,
			from_amount, to_amount, rate, side, status, client_order_id, executed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	now := time.Now()
	trade.CreatedAt = now
	trade.UpdatedAt = now

	err := tx.QueryRowContext(
		ctx,
		query,
		trade.UserID,
		trade.FromAccountID,
		trade.ToAccountID,
		trade.FromCurrency,
		trade.ToCurrency,
		trade.FromAmount,
		trade.ToAmount,
		trade.Rate,
		trade.Side,
		trade.Status,
		trade.ClientOrderID,
		trade.ExecutedAt,
		trade.CreatedAt,
		trade.UpdatedAt,
	).Scan(&trade.ID)

	if err != nil {
		return err
	}

	return nil
}

// scanTrade читает одну строку сделки (без ассоциаций)
func scanTrade(scan func(dest ...interface{}) error) (*models.Trade, error) {
	trade := &models.Trade{}
	err := scan(
		&trade.ID,
		&trade.UserID,
		&trade.FromAccountID,
		&trade.ToAccountID,
		&trade.FromCurrency,
		&trade.ToCurrency,
		&trade.FromAmount,
		&trade.ToAmount,
		&trade.Rate,
		&trade.Side,
		&trade.Status,
		&trade.ClientOrderID,
		&trade.ExecutedAt,
		&trade.CreatedAt,
		&trade.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return trade, nil
}

// FindByClientOrderID возвращает сделку по идемпотентному токену
func (r *TradeRepository) FindByClientOrderID(ctx context.Context, clientOrderID string) (*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE client_order_id = $1`

	return scanTrade(r.db.QueryRowContext(ctx, query, clientOrderID).Scan)
}

// FindByID возвращает сделку по ID
func (r *TradeRepository) FindByID(ctx context.Context, id int64) (*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE id = $1`

	return scanTrade(r.db.QueryRowContext(ctx, query, id).Scan)
}

// FindByIDTx возвращает сделку по ID внутри транзакции
//
// Используется движком для перечитывания только что созданной записи
// до COMMIT'а (снаружи транзакции она еще не видна).
func (r *TradeRepository) FindByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE id = $1`

	return scanTrade(tx.QueryRowContext(ctx, query, id).Scan)
}

// GetUserTrades возвращает сделки пользователя, новые первыми
func (r *TradeRepository) GetUserTrades(ctx context.Context, userID int64, limit, offset int) ([]*models.Trade, error) {
	query := `
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}

// CountByUser возвращает количество сделок пользователя
func (r *TradeRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM trades WHERE user_id = $1`

	var count int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
