package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	KeyRequestID = "X-Request-ID"
	// 部分前端沿用旧的关联头
	keyCorrelationID = "X-Correlation-ID"
)

// RequestID 沿用上游给的 id，没有就生成；写回请求头后 BFF 转发时原样带上
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if rid == "" {
			rid = c.Request.Header.Get(keyCorrelationID)
		}
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Request.Header.Set(KeyRequestID, rid)
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string { return c.GetString(KeyRequestID) }
