package middleware

import "context"

type contextKey int

const (
	userIDKey contextKey = iota
	tokenIDKey
)

// WithUserID кладет id аутентифицированного пользователя в контекст
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext достает id пользователя, положенный Auth middleware
func UserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDKey).(int64)
	return userID, ok
}

// WithTokenID кладет id использованного API токена в контекст
func WithTokenID(ctx context.Context, tokenID int64) context.Context {
	return context.WithValue(ctx, tokenIDKey, tokenID)
}

// TokenIDFromContext достает id токена текущего запроса
func TokenIDFromContext(ctx context.Context) (int64, bool) {
	tokenID, ok := ctx.Value(tokenIDKey).(int64)
	return tokenID, ok
}
