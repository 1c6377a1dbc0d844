package service

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"fxtrade/internal/models"
	"fxtrade/internal/repository"
)

// AccountRepositoryInterface определяет интерфейс репозитория счетов
type AccountRepositoryInterface interface {
	FindByID(ctx context.Context, id int64) (*models.Account, error)
	FindByUserAndID(ctx context.Context, userID, accountID int64) (*models.Account, error)
	GetUserAccounts(ctx context.Context, userID int64) ([]*models.Account, error)
	LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error)
	UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error
}

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	Create(ctx context.Context, tx *sql.Tx, trade *models.Trade) error
	FindByClientOrderID(ctx context.Context, clientOrderID string) (*models.Trade, error)
	FindByID(ctx context.Context, id int64) (*models.Trade, error)
	FindByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Trade, error)
	GetUserTrades(ctx context.Context, userID int64, limit, offset int) ([]*models.Trade, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
}

// MarketRateRepositoryInterface определяет интерфейс репозитория курсов
type MarketRateRepositoryInterface interface {
	GetByPair(ctx context.Context, pair string) (*models.MarketRate, error)
}

// AuditRepositoryInterface определяет интерфейс репозитория аудита
type AuditRepositoryInterface interface {
	Append(ctx context.Context, tx *sql.Tx, entry *models.AuditLog) error
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ AccountRepositoryInterface = (*repository.AccountRepository)(nil)
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ MarketRateRepositoryInterface = (*repository.MarketRateRepository)(nil)
var _ AuditRepositoryInterface = (*repository.AuditRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// TradeExecutorInterface определяет интерфейс движка исполнения сделок
type TradeExecutorInterface interface {
	Execute(ctx context.Context, dto *TradeDTO) (*models.Trade, error)
	ExecuteAccountToAccount(ctx context.Context, dto *TradeDTO) (*models.Trade, error)
}

// MarketRateServiceInterface определяет интерфейс сервиса курсов
type MarketRateServiceInterface interface {
	GetCurrentRate(ctx context.Context, fromCurrency, toCurrency string) (decimal.Decimal, error)
}

// Broadcaster отправляет событие всем подключенным WebSocket клиентам.
// Реализуется websocket.Hub; движку важен только факт доставки наружу.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ TradeExecutorInterface = (*TradeService)(nil)
var _ MarketRateServiceInterface = (*MarketRateService)(nil)
