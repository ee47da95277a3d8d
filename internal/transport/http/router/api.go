package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sum-admin/internal/core/auth"
	"sum-admin/internal/service"
	"sum-admin/internal/transport/http/handler"
	mdw "sum-admin/internal/transport/http/middleware"
)

type APIDeps struct {
	Users *service.UserService
	Roles *service.RoleService
	JWT   *auth.JWTer
	// RequireAuth 为 true 时写接口必须携带有效 Bearer
	RequireAuth bool
	// Ready 健康检查探针（DB ping 等），可为 nil
	Ready func() error
	// 零值时用 DefaultLimits
	Limits mdw.Limits
}

var DefaultLimits = mdw.Limits{MaxInFlight: 300, MaxBodyBytes: 1 << 20, Timeout: 10 * time.Second}

func NewAPIEngine(l *zap.Logger, d APIDeps) *gin.Engine {
	r := gin.New()

	// 中间件
	lim := d.Limits
	if lim.MaxInFlight == 0 && lim.MaxBodyBytes == 0 && lim.Timeout == 0 {
		lim = DefaultLimits
	}
	lim.Exempt = []string{"/health", "/metrics"}

	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.SimpleRecovery(l),
		mdw.Metrics("api"),
		mdw.AccessLog(l),
	)
	r.Use(lim.Handlers()...)
	r.Use(mdw.Actor(d.JWT))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": 0, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": 1})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var guard gin.HandlerFunc
	if d.RequireAuth && d.JWT != nil {
		guard = mdw.AuthJWT(d.JWT)
	}

	var reg Registry
	reg.Register(
		handler.UserHandler{Svc: d.Users, Guard: guard},
		handler.RoleHandler{Svc: d.Roles, Guard: guard},
	)
	if d.JWT != nil {
		reg.Register(handler.AuthHandler{Svc: d.Users})
	}
	reg.MountAll(&r.RouterGroup)

	return r
}
