package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade представляет запись об исполненной конвертации между счетами
//
// После перехода в статус EXECUTED запись неизменяема: ядро никогда не
// обновляет и не удаляет сделки (отмена/реверс - отдельный workflow,
// которого здесь нет).
//
// ClientOrderID - опциональный идемпотентный токен клиента. На уровне БД
// на него наложен unique constraint: повторная отправка с тем же токеном
// возвращает уже существующую сделку, а не создает вторую.
type Trade struct {
	ID            int64           `json:"id" db:"id"`
	UserID        int64           `json:"user_id" db:"user_id"`
	FromAccountID int64           `json:"from_account_id" db:"from_account_id"`
	ToAccountID   *int64          `json:"to_account_id,omitempty" db:"to_account_id"` // nil = внешняя нога
	FromCurrency  string          `json:"from_currency" db:"from_currency"`
	ToCurrency    string          `json:"to_currency" db:"to_currency"`
	FromAmount    decimal.Decimal `json:"from_amount" db:"from_amount"`
	ToAmount      decimal.Decimal `json:"to_amount" db:"to_amount"`
	Rate          decimal.Decimal `json:"rate" db:"rate"`
	Side          string          `json:"side" db:"side"`     // BUY, SELL
	Status        string          `json:"status" db:"status"` // PENDING, EXECUTED, FAILED, CANCELLED
	ClientOrderID *string         `json:"client_order_id,omitempty" db:"client_order_id"`
	ExecutedAt    *time.Time      `json:"executed_at,omitempty" db:"executed_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`

	// Ассоциации (заполняются репозиторием при чтении с join'ом)
	FromAccount *Account `json:"from_account,omitempty" db:"-"`
	ToAccount   *Account `json:"to_account,omitempty" db:"-"`
}

// Стороны сделки
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Статусы сделки
const (
	TradeStatusPending   = "PENDING"
	TradeStatusExecuted  = "EXECUTED"
	TradeStatusFailed    = "FAILED"
	TradeStatusCancelled = "CANCELLED"
)

// IsValidSide проверяет сторону сделки
func IsValidSide(side string) bool {
	return side == TradeSideBuy || side == TradeSideSell
}
