package models

import "time"

// APIToken представляет выданный пользователю токен доступа к API
//
// Хранится только bcrypt-хеш секрета. Клиент предъявляет токен в виде
// "<id>:<секрет>" в заголовке Authorization: Bearer. Выдача и отзыв
// токенов - внешний процесс (этот сервис токены только проверяет).
type APIToken struct {
	ID         int64      `json:"id" db:"id"`
	UserID     int64      `json:"user_id" db:"user_id"`
	Name       string     `json:"name" db:"name"`
	TokenHash  string     `json:"-" db:"token_hash"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty" db:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}
