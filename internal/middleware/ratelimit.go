package middleware

import (
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	defaultMessagesPerMinute = 30
	defaultMessageBurst      = 5

	// Idle limiters are dropped so abandoned sessions don't accumulate forever.
	limiterIdleAge        = 10 * time.Minute
	limiterCleanupEvery   = time.Minute
	limiterCleanupMinSize = 64
)

type sessionLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SendRateLimiter throttles visitor message sends per session id. Typing pings
// and polls are not limited, only the write path matters here.
type SendRateLimiter struct {
	mu          sync.Mutex
	sessions    map[string]*sessionLimiter
	perMinute   int
	burst       int
	lastCleanup time.Time
}

// NewSendRateLimiter builds a limiter configured from CHAT_RATE_LIMIT
// (messages per minute) and CHAT_RATE_BURST.
func NewSendRateLimiter() *SendRateLimiter {
	perMinute := defaultMessagesPerMinute
	if v := os.Getenv("CHAT_RATE_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			perMinute = parsed
		}
	}
	burst := defaultMessageBurst
	if v := os.Getenv("CHAT_RATE_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			burst = parsed
		}
	}
	return &SendRateLimiter{
		sessions:    make(map[string]*sessionLimiter),
		perMinute:   perMinute,
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// Allow reports whether the session may send another message now.
func (l *SendRateLimiter) Allow(sessionID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	sl, ok := l.sessions[sessionID]
	if !ok {
		sl = &sessionLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst),
		}
		l.sessions[sessionID] = sl
	}
	sl.lastSeen = now

	l.cleanupLocked(now)

	return sl.limiter.Allow()
}

func (l *SendRateLimiter) cleanupLocked(now time.Time) {
	if len(l.sessions) < limiterCleanupMinSize || now.Sub(l.lastCleanup) < limiterCleanupEvery {
		return
	}
	for id, sl := range l.sessions {
		if now.Sub(sl.lastSeen) > limiterIdleAge {
			delete(l.sessions, id)
		}
	}
	l.lastCleanup = now
}

// Reject writes the standard 429 response for an over-limit session.
func (l *SendRateLimiter) Reject(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error": "too many messages, slow down",
		"code":  "RATE_LIMITED",
	})
}
