package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/DamionHane/FHEReporting/internal/config"
)

// RateLimiter throttles callers with a token bucket per client key. Requests
// carrying a bearer token are keyed by the token, so one principal cannot
// starve others behind the same proxy; anonymous callers share the bucket of
// their network address.
type RateLimiter struct {
	enabled  bool
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	clients  map[string]*client
	maxIdle  time.Duration
	stopOnce sync.Once
	stop     chan struct{}
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter from config. Requests is the sustained
// budget per Duration; the burst equals the budget.
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		enabled: cfg.Enabled,
		limit:   rate.Every(cfg.Duration / time.Duration(max(cfg.Requests, 1))),
		burst:   cfg.Requests,
		clients: make(map[string]*client),
		maxIdle: 3 * time.Minute,
		stop:    make(chan struct{}),
	}
	if rl.enabled {
		go rl.evictIdle()
	}
	return rl
}

// Limit wraps a handler with the per-client budget check.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.enabled {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.allow(clientKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

// Close stops the background eviction loop.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for key, c := range rl.clients {
				if time.Since(c.lastSeen) > rl.maxIdle {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stop:
			return
		}
	}
}

// clientKey identifies the caller for throttling. Authenticated requests are
// keyed by their bearer token; anonymous ones by the closest network address.
func clientKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
