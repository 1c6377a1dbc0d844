package middleware

import (
	"net/http"
	"strconv"

	"fxtrade/pkg/ratelimit"
)

// RateLimit - пер-пользовательский лимит для торговых эндпоинтов
//
// Ключ - id аутентифицированного пользователя (middleware ставится
// после Auth); для неаутентифицированных запросов - адрес клиента.
// При превышении лимита возвращается 429 с Retry-After.
func RateLimit(limiter *ratelimit.KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.RemoteAddr
			if userID, ok := UserIDFromContext(r.Context()); ok {
				key = "user:" + strconv.FormatInt(userID, 10)
			}

			if !limiter.Allow(key) {
				w.Header().Set("Retry-After", "2")
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
