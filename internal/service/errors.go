package service

import (
	"errors"
	"fmt"
)

// Таксономия ошибок движка исполнения:
//
//   - ValidationError: бизнес-аргументы запроса неверны (чужой счет,
//     нехватка баланса, несовпадение валют...). Повторять запрос
//     бессмысленно. HTTP-аналог: 422.
//   - ErrTransient: временный сбой хранилища (таймаут блокировки,
//     deadlock, недоступность БД). Клиент может безопасно повторить -
//     повтор защищен идемпотентным токеном. HTTP-аналог: 503.
//   - Все остальное - внутренняя ошибка. HTTP-аналог: 500.
//
// Конфликт идемпотентности ошибкой не является: он разрешается внутри
// движка повторным чтением существующей сделки.

// ErrTransient - маркер временных ошибок; конкретная причина
// заворачивается через %w.
var ErrTransient = errors.New("transient error, retry is safe")

// ValidationError - ошибка валидации одного поля запроса
//
// Валидация падает на первом нарушении (fail fast), поэтому наружу
// всегда уходит одна ошибка с именем поля и причиной.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError создает ошибку валидации поля
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError извлекает ValidationError из цепочки ошибок
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
