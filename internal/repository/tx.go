package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Коды ошибок PostgreSQL, которые движок исполнения различает явно.
// Классификация по стабильному коду, а не по тексту сообщения.
const (
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// WithinTransaction выполняет fn внутри одной транзакции
//
// Гарантирует завершение транзакции на любом пути выхода:
// - fn вернула nil  -> COMMIT
// - fn вернула err  -> ROLLBACK, возврат исходной ошибки
// - panic внутри fn -> ROLLBACK, panic пробрасывается дальше
//
// Это единственная точка управления границей транзакции: репозиторные
// методы, требующие блокировок, принимают *sql.Tx явно и вне транзакции
// неработоспособны.
func WithinTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// SetLockTimeout устанавливает lock_timeout для текущей транзакции
//
// SET LOCAL действует только до конца транзакции. Ожидание FOR UPDATE
// дольше таймаута завершается ошибкой 55P03 (lock_not_available),
// которую движок классифицирует как временную.
func SetLockTimeout(ctx context.Context, tx *sql.Tx, timeout time.Duration) error {
	query := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}
	return nil
}

// IsUniqueViolation проверяет, что ошибка - нарушение уникальности
// указанного constraint'а. Пустой constraint совпадает с любым.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	if string(pqErr.Code) != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// IsTransient проверяет, что ошибка временная и повтор той же транзакции
// имеет смысл: таймаут ожидания блокировки, deadlock, serialization failure.
func IsTransient(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case pqLockNotAvailable, pqDeadlockDetected, pqSerializationFailure:
		return true
	}
	return false
}
