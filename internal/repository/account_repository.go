package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"fxtrade/internal/models"
)

// Ошибки репозитория счетов
var (
	ErrAccountNotFound = errors.New("account not found")
)

// AccountRepository - работа с таблицей accounts
//
// Балансы изменяются только методом UpdateBalance внутри транзакции,
// в которой тот же счет был прочитан через LockForUpdate. Обычные
// чтения (FindByID и т.д.) блокировок не берут.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository создает новый экземпляр репозитория
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, user_id, name, currency, balance, status, created_at, updated_at`

// scanAccount читает одну строку счета
func scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Name,
		&account.Currency,
		&account.Balance,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// FindByID возвращает счет по ID
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1`

	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// FindByUserAndID возвращает счет, если он принадлежит пользователю
func (r *AccountRepository) FindByUserAndID(ctx context.Context, userID, accountID int64) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1 AND id = $2`

	return scanAccount(r.db.QueryRowContext(ctx, query, userID, accountID))
}

// GetUserAccounts возвращает все счета пользователя
func (r *AccountRepository) GetUserAccounts(ctx context.Context, userID int64) ([]*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE user_id = $1
		ORDER BY currency`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account := &models.Account{}
		err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.Name,
			&account.Currency,
			&account.Balance,
			&account.Status,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return accounts, nil
}

// LockForUpdate читает счет с эксклюзивной блокировкой строки
//
// Должен вызываться только внутри активной транзакции: блокировка
// держится до ее COMMIT/ROLLBACK. Конкурирующая транзакция, пытающаяся
// заблокировать ту же строку, ждет освобождения (или получает 55P03
// при установленном lock_timeout).
//
// Возвращает ErrAccountNotFound, если счета нет.
func (r *AccountRepository) LockForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = $1
		FOR UPDATE`

	return scanAccount(tx.QueryRowContext(ctx, query, id))
}

// UpdateBalance безусловно перезаписывает баланс счета
//
// Вызывается только движком исполнения под блокировкой, взятой через
// LockForUpdate в той же транзакции: новое значение вычислено из
// заблокированного in-tx баланса, а не из отдельно перечитанного.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
