package models

import (
	"encoding/json"
	"time"
)

// AuditLog представляет одну запись аудита - неизменяемый след изменения
// состояния. Записи только добавляются, никогда не обновляются и не
// удаляются. Одна запись на одну успешную операцию движка.
//
// OldValues/NewValues - структурированные снимки состояния до/после
// (JSON). Метаданные запроса (IP, User-Agent) передаются явно от
// HTTP-слоя, а не читаются из глобального состояния.
type AuditLog struct {
	ID         int64           `json:"id" db:"id"`
	UserID     *int64          `json:"user_id,omitempty" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   *int64          `json:"entity_id,omitempty" db:"entity_id"`
	OldValues  json.RawMessage `json:"old_values,omitempty" db:"old_values"`
	NewValues  json.RawMessage `json:"new_values,omitempty" db:"new_values"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Действия аудита, записываемые движком исполнения
const (
	AuditActionTradeExecuted = "trade_executed"
	AuditActionA2ATrade      = "account_to_account_trade"
)
