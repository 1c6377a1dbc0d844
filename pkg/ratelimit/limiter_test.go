package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	limiter := NewRateLimiter(1, 5)

	for i := 0; i < 5; i++ {
		if !limiter.Allow() {
			t.Fatalf("request %d within burst was rejected", i+1)
		}
	}

	if limiter.Allow() {
		t.Error("request above burst was allowed")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	limiter := NewRateLimiter(100, 1) // быстрое пополнение для теста

	if !limiter.Allow() {
		t.Fatal("first request rejected")
	}
	if limiter.Allow() {
		t.Fatal("bucket must be empty")
	}

	time.Sleep(20 * time.Millisecond)

	if !limiter.Allow() {
		t.Error("bucket was not refilled")
	}
}

func TestRateLimiter_WaitCancelled(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	limiter.Allow() // опустошаем ведро

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); err == nil {
		t.Error("Wait must return error on cancelled context")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(-1, -1)
	if limiter.rate <= 0 || limiter.burst < limiter.rate {
		t.Errorf("defaults not applied: rate=%v burst=%v", limiter.rate, limiter.burst)
	}
}

func TestKeyedLimiter_IndependentBuckets(t *testing.T) {
	limiter := NewKeyedLimiter(0.001, 1)

	if !limiter.Allow("user:1") {
		t.Fatal("first request for user:1 rejected")
	}
	if limiter.Allow("user:1") {
		t.Error("second request for user:1 must be rejected")
	}

	// Лимит первого пользователя не трогает второго
	if !limiter.Allow("user:2") {
		t.Error("first request for user:2 rejected")
	}

	if limiter.Size() != 2 {
		t.Errorf("expected 2 buckets, got %d", limiter.Size())
	}
}
