package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mdw "sum-admin/internal/transport/http/middleware"
)

type Options struct {
	Name string
	// AllowAllOrigins 为 true 时 CORS 放行任意来源
	AllowAllOrigins bool
}

// NewRouter 审计查询、BFF、消费者运维端口共用的基础引擎，自带 /health 与 /metrics
func NewRouter(l *zap.Logger, opt Options) *gin.Engine {
	r := gin.New()
	r.Use(mdw.RequestID())
	r.Use(ginzap.Ginzap(l, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(l, true))
	r.Use(mdw.Metrics(opt.Name))

	cc := cors.DefaultConfig()
	cc.AllowAllOrigins = opt.AllowAllOrigins
	if !opt.AllowAllOrigins {
		cc.AllowOrigins = []string{"http://localhost:3000"}
	}
	cc.AllowHeaders = append(cc.AllowHeaders, "Authorization", mdw.KeyRequestID)
	cc.ExposeHeaders = []string{mdw.KeyRequestID}
	r.Use(cors.New(cc))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1, "service": opt.Name}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// Serve 启动 srv，ctx 结束后优雅关闭（最多等 10s）
func Serve(ctx context.Context, srv *http.Server, l *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown %s: %w", srv.Addr, err)
	}
	l.Info("http stopped gracefully", zap.String("addr", srv.Addr))
	return nil
}
