package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimit interface {
	Allow(addr string) bool
}

// idleTTL is how long an address keeps its bucket after its last request.
const idleTTL = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one token bucket per client address.
type TokenBucketLimiter struct {
	limit     rate.Limit
	burst     int
	now       func() time.Time
	mutex     sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

func New(requestsPerSecond float64, burst int) RateLimit {
	return newLimiter(requestsPerSecond, burst, time.Now)
}

func newLimiter(requestsPerSecond float64, burst int, now func() time.Time) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		limit:     rate.Limit(requestsPerSecond),
		burst:     burst,
		now:       now,
		clients:   make(map[string]*client),
		lastSweep: now(),
	}
}

func (rl *TokenBucketLimiter) Allow(addr string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	rl.sweep(now)

	c, ok := rl.clients[addr]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[addr] = c
	}
	c.lastSeen = now

	return c.limiter.AllowN(now, 1)
}

func (rl *TokenBucketLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < idleTTL {
		return
	}
	for addr, c := range rl.clients {
		if now.Sub(c.lastSeen) > idleTTL {
			delete(rl.clients, addr)
		}
	}
	rl.lastSweep = now
}
