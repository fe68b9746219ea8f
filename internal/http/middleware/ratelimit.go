package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitorTTL is how long an idle visitor entry survives before GC.
const visitorTTL = 10 * time.Minute

// gcEvery triggers a sweep of stale visitors after this many lookups.
const gcEvery = 5000

// KeyFunc derives the rate-limiting key for a request.
type KeyFunc func(c *gin.Context) string

// KeyByClientOrIP keys by the resolved client identity when present, falling
// back to the remote IP. Used as the default for the edge limiter so the
// per-client budget is shared across a client's connections.
func KeyByClientOrIP(c *gin.Context) string {
	if id := ClientIDFrom(c); id != "" {
		return id
	}
	return c.ClientIP()
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token-bucket limiter applied at the HTTP edge. It guards
// the whole API surface against floods; the per-assistant sliding window in
// the answer path enforces the tighter chat-specific budget.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	keyFn    KeyFunc
	lookups  int
	now      func() time.Time
}

// NewRateLimiter builds an edge limiter allowing rps requests per second
// with the given burst per key. keyFn may be nil, defaulting to
// KeyByClientOrIP.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if keyFn == nil {
		keyFn = KeyByClientOrIP
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		now:      time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= gcEvery {
		rl.lookups = 0
		cutoff := rl.now().Add(-visitorTTL)
		for k, v := range rl.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(rl.visitors, k)
			}
		}
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter
}

// Handler returns the Gin middleware enforcing the limit. Rejected requests
// get a 429 with Retry-After and the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.get(rl.keyFn(c)).Allow() {
			rid, _ := c.Get(requestIDKey)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"request_id": asString(rid),
				"code":       "rate_limited",
				"message":    "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
