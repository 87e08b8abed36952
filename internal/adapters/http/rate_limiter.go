package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// OfferRateLimiter keeps one token bucket per client token.
type OfferRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

func NewOfferRateLimiter(perSecond float64, burst int) *OfferRateLimiter {
	return &OfferRateLimiter{
		clients: make(map[string]*limiterEntry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (rl *OfferRateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for id, e := range rl.clients {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(rl.clients, id)
		}
	}

	e, ok := rl.clients[client]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[client] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}
