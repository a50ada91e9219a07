package http

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Buckets that sit
// idle past maxIdle are evicted, so drive-by scanners and rotating
// addresses do not grow the map without bound.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimitedClient
	rps     rate.Limit
	burst   int
	maxIdle time.Duration
}

type rateLimitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter with the given per-IP refill rate and
// burst, and starts the background eviction loop.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*rateLimitedClient),
		rps:     rate.Limit(rps),
		burst:   burst,
		maxIdle: 5 * time.Minute,
	}
	go rl.evictLoop(time.Minute)
	return rl
}

// Allow reports whether the client identified by ip has budget for one
// more request, creating its bucket on first sight.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[ip]
	if !ok {
		c = &rateLimitedClient{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter.Allow()
}

func (rl *RateLimiter) evictLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	for range ticker.C {
		rl.evictIdle(time.Now().Add(-rl.maxIdle))
	}
}

func (rl *RateLimiter) evictIdle(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// RateLimitMiddleware rejects requests over the per-IP budget with a 429.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(getIPAddress(r)) {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
