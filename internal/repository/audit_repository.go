package repository

import (
	"context"
	"database/sql"
	"time"

	"fxtrade/internal/models"
)

// AuditRepository - работа с таблицей audit_logs
//
// Таблица append-only: записи никогда не обновляются и не удаляются.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository создает новый экземпляр репозитория
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append добавляет запись аудита в транзакции движка
//
// Участвует в той же транзакции, что и изменение состояния: ROLLBACK
// откатывает и запись аудита, поэтому след неудавшихся попыток в
// хранилище не попадает.
func (r *AuditRepository) Append(ctx context.Context, tx *sql.Tx, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, old_values, new_values,
			ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	entry.CreatedAt = time.Now()

	// json.RawMessage(nil) должен попасть в БД как NULL, а не как пустая строка
	var oldValues, newValues interface{}
	if entry.OldValues != nil {
		oldValues = []byte(entry.OldValues)
	}
	if entry.NewValues != nil {
		newValues = []byte(entry.NewValues)
	}

	err := tx.QueryRowContext(
		ctx,
		query,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		oldValues,
		newValues,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		return err
	}

	return nil
}
