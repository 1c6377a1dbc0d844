package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account представляет денежный счет пользователя в одной валюте
//
// Баланс хранится как decimal(18,8) - точная арифметика без
// погрешностей floating-point. Баланс никогда не бывает отрицательным:
// единственный код, который его изменяет - TradeService внутри
// транзакции под эксклюзивной блокировкой строки (FOR UPDATE).
type Account struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	Name      string          `json:"name" db:"name"`
	Currency  string          `json:"currency" db:"currency"` // ISO код из 3 букв (GBP, EUR, ...)
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Status    string          `json:"status" db:"status"` // active, inactive, suspended
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Статусы счета
const (
	AccountStatusActive    = "active"
	AccountStatusInactive  = "inactive"
	AccountStatusSuspended = "suspended"
)

// BalanceScale - количество знаков после запятой для балансов и сумм
const BalanceScale = 8

// IsActive проверяет, что счет активен и может участвовать в сделках
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// HasSufficientBalance проверяет, хватает ли баланса на списание amount
func (a *Account) HasSufficientBalance(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}
