package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"hirelink/internal/pkg/errors"
)

// RateLimiter is a per-client token bucket guarding the redirect path.
// Buckets refill continuously at limit/minute and idle buckets are reaped
// by a background loop.
type RateLimiter struct {
	store *sync.Map // map[string]*bucket
	limit int
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func NewRateLimiter(limitPerMinute int) *RateLimiter {
	if limitPerMinute <= 0 {
		limitPerMinute = 600
	}
	rl := &RateLimiter{
		store: &sync.Map{},
		limit: limitPerMinute,
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.store.Range(func(key, value interface{}) bool {
			b := value.(*bucket)
			b.mu.Lock()
			if now.Sub(b.lastAccess) > 10*time.Minute {
				rl.store.Delete(key)
			}
			b.mu.Unlock()
			return true
		})
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &bucket{
		tokens:     rl.limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	elapsed := now.Sub(b.lastRefill)
	refillRate := float64(rl.limit) / 60.0
	refillTokens := int(elapsed.Seconds() * refillRate)

	if refillTokens > 0 {
		if b.tokens+refillTokens > rl.limit {
			b.tokens = rl.limit
		} else {
			b.tokens += refillTokens
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}

	return false
}

// Wrap applies the limiter to a handler, keyed by client IP.
func (rl *RateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}

		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", "60")
			errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded,
				"Rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
