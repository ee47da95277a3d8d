package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "sum-admin/internal/transport/http/response"
)

// Limits 单个 HTTP 服务的资源上限；零值字段不启用对应限制
type Limits struct {
	MaxInFlight  int64
	MaxBodyBytes int64
	Timeout      time.Duration
	// Exempt 不受限的路由（FullPath），一般是 /health /metrics
	Exempt []string
}

// Handlers 按 body -> 并发 -> 超时的顺序返回中间件
func (l Limits) Handlers() []gin.HandlerFunc {
	var hs []gin.HandlerFunc
	if l.MaxBodyBytes > 0 {
		hs = append(hs, MaxBodyBytes(l.MaxBodyBytes))
	}
	if l.MaxInFlight > 0 {
		hs = append(hs, ConcurrencyLimit(l.MaxInFlight))
	}
	if l.Timeout > 0 {
		hs = append(hs, Timeout(l.Timeout))
	}
	if len(l.Exempt) == 0 {
		return hs
	}
	skip := make(map[string]struct{}, len(l.Exempt))
	for _, p := range l.Exempt {
		skip[p] = struct{}{}
	}
	for i, h := range hs {
		hs[i] = unless(skip, h)
	}
	return hs
}

func unless(skip map[string]struct{}, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}
		h(c)
	}
}

// MaxBodyBytes 声明长度超限直接 413；分块上传在绑定时由 MaxBytesReader 截断
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, http.StatusRequestEntityTooLarge, "")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

// ConcurrencyLimit 在途请求数上限，排队期间客户端断开则 503
func ConcurrencyLimit(n int64) gin.HandlerFunc {
	sem := semaphore.NewWeighted(n)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			resp.Abort(c, http.StatusServiceUnavailable, "")
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}

// Timeout 给 DB / 事件发布一个截止时间；处理器没写响应才补 504
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			resp.Abort(c, http.StatusGatewayTimeout, "")
		}
	}
}
