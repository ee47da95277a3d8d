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
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"sum-admin/internal/consumer"
	"sum-admin/internal/core/config"
	"sum-admin/internal/core/database"
	"sum-admin/internal/core/logger"
	"sum-admin/internal/core/server"
	"sum-admin/internal/eventbus/rabbitmq"
	"sum-admin/internal/repo"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New("consumers", cfg.Log)
	defer cleanup()
	// 第三方库的标准 log 输出并入 zap
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	db, err := database.NewGorm(database.OptsFrom(cfg.DB, log))
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
	}

	// 自动化产生的二级事件也走同一个交换机
	pub, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Fatal("rabbitmq connect", zap.Error(err))
	}
	defer pub.Close()

	consumers := []consumer.Consumer{
		consumer.NewAuditor(repo.NewAuditRepo(db), log),
		consumer.NewNotifier(nil, log),
		consumer.NewRoleAutomation(repo.NewAssignmentRepo(db), pub,
			consumer.AutomationConfig{
				DefaultRoleID:   cfg.Automation.DefaultRoleID,
				DefaultRoleName: cfg.Automation.DefaultRoleName,
			}, log),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		c = consumer.Instrument(c)
		rc := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
			URL:      cfg.RabbitMQ.URL,
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    "sum." + c.Name(),
			Keys:     c.Topics(),
			Prefetch: cfg.RabbitMQ.Prefetch,
		}, c, log)
		g.Go(func() error { return rc.Run(gctx) })
	}

	// 运维端口：/health /metrics
	ops := server.NewRouter(log, server.Options{Name: "consumers"})
	srv := server.BuildServer(server.Addr(cfg.App.Consumers.Host, cfg.App.Consumers.Port), ops,
		5*time.Second, 10*time.Second, 60*time.Second)
	g.Go(func() error { return server.Serve(gctx, srv, log) })

	log.Info("consumers started", zap.Int("count", len(consumers)))
	if err := g.Wait(); err != nil {
		log.Fatal("consumers FAILED", zap.Error(err))
	}
	log.Info("consumers stopped gracefully")
}
