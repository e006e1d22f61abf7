package middlewares

import (
	"net/http"
	"sync"
	"time"

	"auth-failover/internal/api/models"

	"github.com/gin-gonic/gin"
)

// RateLimiter counts requests per client IP in fixed one-minute windows
type RateLimiter struct {
	visitors    map[string]*Visitor
	mutex       sync.Mutex
	rate        int
	window      time.Duration
	idle        time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

type Visitor struct {
	lastSeen time.Time
	count    int
	window   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per minute
func NewRateLimiter(rate int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*Visitor),
		rate:     rate,
		window:   time.Minute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// RateLimit middleware rejects clients over perMinute requests. Zero disables it.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(perMinute)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.NewErrorResponse(models.MsgRateLimited))
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	rl.cleanupLocked(now)

	visitor, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &Visitor{lastSeen: now, count: 1, window: now}
		return true
	}

	visitor.lastSeen = now

	if now.Sub(visitor.window) >= rl.window {
		visitor.count = 1
		visitor.window = now
		return true
	}

	if visitor.count >= rl.rate {
		return false
	}

	visitor.count++
	return true
}

// cleanupLocked drops idle visitors at most once per idle period
func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < rl.idle {
		return
	}
	rl.lastCleanup = now
	for ip, visitor := range rl.visitors {
		if now.Sub(visitor.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}
