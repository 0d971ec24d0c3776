package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/apperror"
	"github.com/sittipong-hemloun/ai-trash-rank-sub000/internal/auth"
)

// UserRateLimiter keeps one token bucket per authenticated user.
type UserRateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserRateLimiter allows perMinute requests per user with the given burst.
func NewUserRateLimiter(perMinute float64, burst int) *UserRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &UserRateLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether userID may make a request now.
func (l *UserRateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[userID]
	if !ok {
		l.evictLocked(now)
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *UserRateLimiter) evictLocked(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, id)
		}
	}
}

// Middleware rejects requests over the caller's budget with 429.
func (l *UserRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c.Request.Context())
		if !ok {
			userID = c.ClientIP()
		}
		if !l.Allow(userID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": apperror.KindRateLimit.UserMessage(),
				"kind":  apperror.KindRateLimit.String(),
			})
			return
		}
		c.Next()
	}
}
