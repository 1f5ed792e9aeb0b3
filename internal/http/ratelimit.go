package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = 15 * time.Minute
	limiterSweepInterval = time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterCache holds one token bucket per key and evicts buckets idle longer than idleTTL.
type limiterCache struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newLimiterCache(rps float64, burst int) *limiterCache {
	return &limiterCache{
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(rps),
		burst:    burst,
		idleTTL:  limiterIdleTTL,
		now:      time.Now,
	}
}

func (lc *limiterCache) allow(key string) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.now()
	if now.Sub(lc.lastSweep) >= limiterSweepInterval {
		lc.sweepLocked(now)
		lc.lastSweep = now
	}
	entry, ok := lc.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(lc.rate, lc.burst)}
		lc.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (lc *limiterCache) sweepLocked(now time.Time) {
	for key, entry := range lc.limiters {
		if now.Sub(entry.lastSeen) > lc.idleTTL {
			delete(lc.limiters, key)
		}
	}
}

func (lc *limiterCache) size() int {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return len(lc.limiters)
}

// LoginRateLimiter throttles login attempts per client IP.
type LoginRateLimiter struct {
	cache *limiterCache
}

// NewLoginRateLimiter allows rps attempts per second per IP with the given burst.
func NewLoginRateLimiter(rps float64, burst int) *LoginRateLimiter {
	return &LoginRateLimiter{cache: newLimiterCache(rps, burst)}
}

// Middleware rejects requests over the limit with 429.
func (rl *LoginRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.cache.allow(ip) {
			log.WithFields(log.Fields{"ip": ip, "path": c.FullPath()}).Warn("login rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, try again later"})
			return
		}
		c.Next()
	}
}
