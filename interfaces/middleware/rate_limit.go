package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"multipost/domain/dto"
)

// ClientLimiter keeps one token bucket per client address. A bucket idle for
// longer than its refill window is full again and gets dropped on the next
// sweep.
type ClientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	r         rate.Limit
	b         int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter allows requests per duration with a burst of the same size.
func NewClientLimiter(requests int, per time.Duration) *ClientLimiter {
	if requests <= 0 {
		requests = 1
	}
	return &ClientLimiter{
		clients: make(map[string]*clientBucket),
		r:       rate.Every(per / time.Duration(requests)),
		b:       requests,
		idle:    per,
		now:     time.Now,
	}
}

func (l *ClientLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}

	bucket, exists := l.clients[client]
	if !exists {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.r, l.b)}
		l.clients[client] = bucket
	}
	bucket.lastSeen = now
	return bucket.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) sweep(now time.Time) {
	for client, bucket := range l.clients {
		if now.Sub(bucket.lastSeen) >= l.idle {
			delete(l.clients, client)
		}
	}
	l.lastSweep = now
}

func RateLimit(limiter *ClientLimiter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !limiter.Allow(ctx.ClientIP()) {
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, dto.Res{
				ResponseCode:    "429",
				ResponseMessage: "Too many attempts, try again later",
			})
			return
		}
		ctx.Next()
	}
}
