package ratelimit

import (
	"net/http"
	"sync"
	"time"
)

// TokenBucket 取用時才依經過時間補充 token，不需要背景 goroutine
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	ratePS     float64 // tokens/秒
	tokens     float64
	lastRefill time.Time
	nowFunc    func() time.Time
}

// NewTokenBucket capacity 或 ratePS 不大於 0 時回傳 nil，代表不限流
func NewTokenBucket(capacity int, ratePS float64) *TokenBucket {
	if capacity <= 0 || ratePS <= 0 {
		return nil
	}
	return &TokenBucket{
		capacity:   float64(capacity),
		ratePS:     ratePS,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
		nowFunc:    time.Now,
	}
}

func (t *TokenBucket) Allow() bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	if elapsed := now.Sub(t.lastRefill); elapsed > 0 {
		t.tokens = min(t.capacity, t.tokens+elapsed.Seconds()*t.ratePS)
		t.lastRefill = now
	}
	if t.tokens < 1 {
		return false
	}
	t.tokens--
	return true
}

// Middleware 超過限制回傳 429
func Middleware(bucket *TokenBucket) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bucket.Allow() {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
