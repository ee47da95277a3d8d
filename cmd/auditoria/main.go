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
	"golang.org/x/sync/errgroup"

	"sum-admin/internal/audit"
	"sum-admin/internal/consumer"
	"sum-admin/internal/core/cache"
	"sum-admin/internal/core/config"
	"sum-admin/internal/core/database"
	"sum-admin/internal/core/logger"
	"sum-admin/internal/core/server"
	"sum-admin/internal/eventbus/rabbitmq"
	"sum-admin/internal/repo"
	"sum-admin/internal/transport/graphql"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New("auditoria", cfg.Log)
	defer cleanup()

	db, err := database.NewGorm(database.OptsFrom(cfg.DB, log))
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}

	// redis.addr 为空时不走缓存
	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer c.Close()
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.Ping(pingCtx); err != nil {
			log.Warn("redis unavailable; queries fall through to db", zap.Error(err))
		}
		cancel()
	}

	svc := audit.NewService(audit.Deps{
		Users:    repo.NewUserRepo(db),
		Roles:    repo.NewRoleRepo(db),
		Links:    repo.NewAssignmentRepo(db),
		Logs:     repo.NewAuditRepo(db),
		Cache:    c,
		CacheTTL: time.Duration(cfg.Redis.TTLSeconds) * time.Second,
	}, log)

	r := server.NewRouter(log, server.Options{Name: "auditoria", AllowAllOrigins: true})
	graphql.NewHandler(svc, log).Mount(&r.RouterGroup)

	srv := server.BuildServer(
		server.Addr(cfg.App.Audit.Host, cfg.App.Audit.Port), r,
		time.Duration(cfg.App.Audit.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.Audit.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.Audit.IdleTimeoutSec)*time.Second,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	// 有缓存才需要订阅角色事件做失效
	if c != nil && !cfg.RabbitMQ.Disabled {
		inv := consumer.Instrument(audit.NewRoleCacheInvalidator(svc, log))
		rc := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    "sum." + inv.Name(),
			Keys:     inv.Topics(),
			Prefetch: cfg.RabbitMQ.Prefetch,
		}, inv, log)
		g.Go(func() error { return rc.Run(gctx) })
	}
	g.Go(func() error { return server.Serve(gctx, srv, log) })
	if err := g.Wait(); err != nil {
		log.Fatal("auditoria FAILED", zap.Error(err))
	}
}
