package response

import (
	"github.com/gin-gonic/gin"
)

// Resp 统一响应信封
type Resp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK 成功响应；msg 为空时用默认文案
func OK(msg string, data any) Resp {
	if msg == "" {
		msg = CodeMsgMap[200]
	}
	return Resp{Success: true, Message: msg, Data: data}
}

// Error 失败响应；detail 可为空
func Error(status int, msg, detail string) Resp {
	if msg == "" {
		msg = CodeMsgMap[status]
	}
	return Resp{Success: false, Message: msg, Error: detail}
}

func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Error(status, msg, ""))
}

// Fail 按错误分类输出；存储故障不暴露细节
func Fail(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= 500 {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, Error(status, "", "Error interno del servidor"))
		return
	}
	c.AbortWithStatusJSON(status, Error(status, err.Error(), err.Error()))
}
