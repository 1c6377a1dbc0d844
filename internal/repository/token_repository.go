package repository

import (
	"context"
	"database/sql"
	"errors"

	"fxtrade/internal/models"
)

// Ошибки репозитория токенов
var (
	ErrTokenNotFound = errors.New("api token not found")
)

// TokenRepository - работа с таблицей api_tokens
//
// Сервис токены только проверяет; выдача и отзыв - внешний процесс.
type TokenRepository struct {
	db *sql.DB
}

// NewTokenRepository создает новый экземпляр репозитория
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// FindByID возвращает токен по ID
func (r *TokenRepository) FindByID(ctx context.Context, id int64) (*models.APIToken, error) {
	query := `
		SELECT id, user_id, name, token_hash, last_used_at, created_at
		FROM api_tokens
		WHERE id = $1`

	token := &models.APIToken{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&token.ID,
		&token.UserID,
		&token.Name,
		&token.TokenHash,
		&token.LastUsedAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	return token, nil
}

// TouchLastUsed обновляет время последнего использования токена
func (r *TokenRepository) TouchLastUsed(ctx context.Context, id int64) error {
	query := `
		UPDATE api_tokens
		SET last_used_at = NOW()
		WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
