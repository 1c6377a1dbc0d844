package utils

import (
	"github.com/shopspring/decimal"
)

// Синтаксическая валидация полей запроса. Бизнес-проверки
// (владение счетом, баланс, статус) живут в сервисном слое.

// maxAmountScale - максимум знаков после запятой в денежной сумме
const maxAmountScale = 8

// IsValidCurrencyCode проверяет формат кода валюты: ровно три
// заглавные латинские буквы (ISO 4217)
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// IsValidAmount проверяет денежную сумму: строго положительная,
// не больше 8 знаков после запятой
func IsValidAmount(amount decimal.Decimal) bool {
	if !amount.IsPositive() {
		return false
	}
	return amount.Exponent() >= -maxAmountScale
}

// IsValidClientOrderID проверяет идемпотентный токен:
// непустая строка разумной длины
func IsValidClientOrderID(id string) bool {
	return len(id) > 0 && len(id) <= 64
}
