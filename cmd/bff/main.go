package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"sum-admin/internal/bff"
	"sum-admin/internal/core/config"
	"sum-admin/internal/core/logger"
	"sum-admin/internal/core/server"
	mdw "sum-admin/internal/transport/http/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New("bff", cfg.Log)
	defer cleanup()

	r := server.NewRouter(log, server.Options{Name: "bff", AllowAllOrigins: true})
	r.Use(mdw.RateLimitPerIP(20, 40), mdw.MaxBodyBytes(1<<20))

	bff.New(bff.Config{
		APIBaseURL:        cfg.BFF.APIBaseURL,
		AuditoriaURL:      cfg.BFF.AuditoriaURL,
		UsuariosByRoleURL: cfg.BFF.UsuariosByRoleURL,
		Timeout:           time.Duration(cfg.BFF.UpstreamTimeoutSec) * time.Second,
	}, nil, log).Mount(&r.RouterGroup)

	srv := server.BuildServer(
		server.Addr(cfg.App.BFF.Host, cfg.App.BFF.Port), r,
		time.Duration(cfg.App.BFF.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.BFF.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.BFF.IdleTimeoutSec)*time.Second,
	)
	log.Info("bff upstreams",
		zap.String("api", cfg.BFF.APIBaseURL),
		zap.String("auditoria", cfg.BFF.AuditoriaURL),
		zap.String("usuariosByRole", cfg.BFF.UsuariosByRoleURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(ctx, srv, log); err != nil {
		log.Fatal("bff FAILED", zap.Error(err))
	}
}
