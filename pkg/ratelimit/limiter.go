package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - Token Bucket rate limiter
//
// Алгоритм Token Bucket:
// - Ведро наполняется токенами с постоянной скоростью (rate токенов/сек)
// - Максимальная ёмкость ведра = burst (позволяет короткие всплески)
// - Каждый запрос потребляет 1 токен
// - Если токенов нет, запрос отклоняется или ждёт
//
// Использование:
//
//	limiter := NewRateLimiter(0.5, 30) // 30 запросов в минуту
//	if limiter.Allow() { ... }         // неблокирующая проверка
//	err := limiter.Wait(ctx)           // блокирующее ожидание
type RateLimiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость (burst capacity)
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewRateLimiter создаёт новый rate limiter
//
// Параметры:
//   - rate: токенов в секунду (0.5 = 30 запросов в минуту)
//   - burst: максимальный burst
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = rate * 2
	}
	if burst < rate {
		burst = rate
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени
// ВАЖНО: вызывается под lock'ом
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}

	rl.lastRefill = now
}

// Allow проверяет доступность токена без блокировки
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}

	return false
}

// Wait блокирует до получения токена или отмены контекста
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tokens возвращает текущее количество доступных токенов
// Полезно для мониторинга и отладки
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// ============================================================
// KeyedLimiter - независимые ведра по ключу (пользователь, IP)
// ============================================================

// KeyedLimiter ведёт отдельный Token Bucket на каждый ключ
//
// Нужен для пер-клиентских лимитов торговых эндпоинтов: лимит одного
// пользователя не съедает квоту остальных. Неактивные ведра
// вычищаются, чтобы map не рос бесконечно.
type KeyedLimiter struct {
	rate  float64
	burst float64

	// Ведро старше idleTTL с полным запасом токенов удаляется
	idleTTL time.Duration

	limiters map[string]*keyedEntry
	mu       sync.Mutex

	lastSweep time.Time
}

type keyedEntry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyedLimiter создаёт лимитер с пер-ключевыми ведрами
func NewKeyedLimiter(rate, burst float64) *KeyedLimiter {
	return &KeyedLimiter{
		rate:      rate,
		burst:     burst,
		idleTTL:   10 * time.Minute,
		limiters:  make(map[string]*keyedEntry),
		lastSweep: time.Now(),
	}
}

// Allow проверяет доступность токена для ключа
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()

	entry, ok := kl.limiters[key]
	if !ok {
		entry = &keyedEntry{limiter: NewRateLimiter(kl.rate, kl.burst)}
		kl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()

	kl.sweepLocked()
	kl.mu.Unlock()

	return entry.limiter.Allow()
}

// Size возвращает количество активных ведер
func (kl *KeyedLimiter) Size() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}

// sweepLocked удаляет давно не используемые ведра
// ВАЖНО: вызывается под lock'ом, не чаще раза в idleTTL
func (kl *KeyedLimiter) sweepLocked() {
	now := time.Now()
	if now.Sub(kl.lastSweep) < kl.idleTTL {
		return
	}
	kl.lastSweep = now

	for key, entry := range kl.limiters {
		if now.Sub(entry.lastSeen) > kl.idleTTL {
			delete(kl.limiters, key)
		}
	}
}
