package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "sum-admin/internal/transport/http/response"
)

// RateLimit 全局令牌桶，领域 API 用
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		tooMany(c, rps)
	}
}

const bucketIdleTTL = 10 * time.Minute

type ipBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipBuckets 每个来源 IP 一个桶，空闲超过 bucketIdleTTL 的在下次清扫时回收
type ipBuckets struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	m         map[string]*ipBucket
	lastSweep time.Time
}

func (b *ipBuckets) get(ip string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Sub(b.lastSweep) > bucketIdleTTL {
		for k, v := range b.m {
			if now.Sub(v.seen) > bucketIdleTTL {
				delete(b.m, k)
			}
		}
		b.lastSweep = now
	}
	e, ok := b.m[ip]
	if !ok {
		e = &ipBucket{lim: rate.NewLimiter(b.rps, b.burst)}
		b.m[ip] = e
	}
	e.seen = now
	return e.lim
}

// RateLimitPerIP BFF 面向浏览器，按 IP 限速
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	b := &ipBuckets{rps: rps, burst: burst, m: make(map[string]*ipBucket), lastSweep: time.Now()}
	return func(c *gin.Context) {
		if b.get(c.ClientIP(), time.Now()).Allow() {
			c.Next()
			return
		}
		tooMany(c, rps)
	}
}

func tooMany(c *gin.Context, rps rate.Limit) {
	if rps > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(1/float64(rps)))))
	}
	resp.Abort(c, http.StatusTooManyRequests, "")
}
