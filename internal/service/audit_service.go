package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"fxtrade/internal/models"
)

// RequestMeta - метаданные исходного запроса для аудита
//
// Передаются явно от HTTP-слоя через DTO: ни сервис аудита, ни движок
// не читают глобальное состояние запроса.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuditService формирует и записывает события аудита
//
// Append участвует в транзакции вызывающей стороны: откат транзакции
// убирает и запись аудита, след неудавшихся попыток не сохраняется.
type AuditService struct {
	auditRepo AuditRepositoryInterface
}

// NewAuditService создает новый сервис аудита
func NewAuditService(auditRepo AuditRepositoryInterface) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Log добавляет запись аудита в транзакции tx
//
// oldValues/newValues сериализуются в JSON; nil означает отсутствие
// снимка (NULL в хранилище).
func (s *AuditService) Log(
	ctx context.Context,
	tx *sql.Tx,
	userID *int64,
	action string,
	entityType string,
	entityID *int64,
	oldValues, newValues interface{},
	meta RequestMeta,
) error {
	entry := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
	}

	var err error
	if entry.OldValues, err = marshalSnapshot(oldValues); err != nil {
		return fmt.Errorf("marshal old values: %w", err)
	}
	if entry.NewValues, err = marshalSnapshot(newValues); err != nil {
		return fmt.Errorf("marshal new values: %w", err)
	}

	if err := s.auditRepo.Append(ctx, tx, entry); err != nil {
		return fmt.Errorf("append audit log: %w", err)
	}

	return nil
}

func marshalSnapshot(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return data, nil
}
