package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"fxtrade/internal/models"
	"fxtrade/internal/repository"
	"fxtrade/pkg/crypto"
)

// TokenStore - доступ к хранилищу API токенов
type TokenStore interface {
	FindByID(ctx context.Context, id int64) (*models.APIToken, error)
	TouchLastUsed(ctx context.Context, id int64) error
}

// Auth - middleware аутентификации по API токену
//
// Клиент предъявляет токен в заголовке:
//
//	Authorization: Bearer <token_id>:<секрет>
//
// Секрет сверяется с bcrypt-хешем из таблицы api_tokens. При успехе
// id пользователя и токена кладутся в context запроса; все торговые
// handlers берут пользователя оттуда и никогда из тела запроса.
type Auth struct {
	tokens TokenStore
	logger *zap.Logger
}

// NewAuth создает middleware аутентификации
func NewAuth(tokens TokenStore, logger *zap.Logger) *Auth {
	return &Auth{tokens: tokens, logger: logger}
}

// Handler оборачивает next проверкой токена
func (a *Auth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenID, secret, ok := parseBearer(r.Header.Get("Authorization"))
		if !ok {
			unauthorized(w)
			return
		}

		token, err := a.tokens.FindByID(r.Context(), tokenID)
		if err != nil {
			if !errors.Is(err, repository.ErrTokenNotFound) {
				a.logger.Error("ошибка чтения api токена", zap.Error(err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			unauthorized(w)
			return
		}

		if !crypto.CheckToken(secret, token.TokenHash) {
			unauthorized(w)
			return
		}

		// last_used_at обновляется best-effort, ошибка не валит запрос
		if err := a.tokens.TouchLastUsed(r.Context(), token.ID); err != nil {
			a.logger.Warn("не удалось обновить last_used_at", zap.Int64("token_id", token.ID), zap.Error(err))
		}

		ctx := WithUserID(r.Context(), token.UserID)
		ctx = WithTokenID(ctx, token.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// parseBearer разбирает "Bearer <id>:<секрет>"
func parseBearer(header string) (int64, string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return 0, "", false
	}

	raw := strings.TrimPrefix(header, prefix)
	idPart, secret, found := strings.Cut(raw, ":")
	if !found || secret == "" {
		return 0, "", false
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}

	return id, secret, true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
