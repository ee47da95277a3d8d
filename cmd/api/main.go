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
	"gorm.io/gorm"

	"sum-admin/internal/consumer"
	"sum-admin/internal/core/auth"
	"sum-admin/internal/core/config"
	"sum-admin/internal/core/database"
	"sum-admin/internal/core/logger"
	"sum-admin/internal/core/server"
	"sum-admin/internal/event"
	"sum-admin/internal/eventbus/memory"
	"sum-admin/internal/eventbus/rabbitmq"
	"sum-admin/internal/repo"
	"sum-admin/internal/service"
	mdw "sum-admin/internal/transport/http/middleware"
	"sum-admin/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New("api", cfg.Log)
	defer cleanup()
	// 第三方库的标准 log 输出并入 zap
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	users := repo.NewUserRepo(db)
	roles := repo.NewRoleRepo(db)
	links := repo.NewAssignmentRepo(db)

	pub, closePub := mustPublisher(cfg, db, log)
	defer closePub()

	jwter, err := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute)
	if err != nil {
		log.Fatal("jwt", zap.Error(err))
	}

	r := router.NewAPIEngine(log, router.APIDeps{
		Users:       service.NewUserService(users, roles, links, pub, jwter, log),
		Roles:       service.NewRoleService(roles, links, pub, log),
		JWT:         jwter,
		RequireAuth: cfg.JWT.Required,
		Limits: mdw.Limits{
			MaxInFlight:  cfg.App.HTTP.MaxInFlight,
			MaxBodyBytes: cfg.App.HTTP.MaxBodyKB << 10,
			Timeout:      time.Duration(cfg.App.HTTP.RequestTimeoutSec) * time.Second,
		},
		Ready: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Ping()
		},
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("domain api starting",
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("usuarios", baseURL+"/usuarios"),
		zap.String("roles", baseURL+"/roles"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(ctx, srv, log); err != nil {
		log.Fatal("domain api FAILED", zap.Error(err))
	}
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.OptsFrom(cfg.DB, l))
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

// mustPublisher 默认发往 RabbitMQ；rabbitmq.disabled 时改用进程内总线，三个消费者在本进程订阅
func mustPublisher(cfg *config.Config, db *gorm.DB, l *zap.Logger) (event.Publisher, func()) {
	if !cfg.RabbitMQ.Disabled {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			l.Fatal("rabbitmq connect", zap.Error(err))
		}
		l.Info("event publisher ready", zap.String("exchange", cfg.RabbitMQ.Exchange))
		return p, func() { _ = p.Close() }
	}

	bus := memory.NewBus(l)
	auto := consumer.AutomationConfig{
		DefaultRoleID:   cfg.Automation.DefaultRoleID,
		DefaultRoleName: cfg.Automation.DefaultRoleName,
	}
	for _, c := range []consumer.Consumer{
		consumer.NewAuditor(repo.NewAuditRepo(db), l),
		consumer.NewNotifier(nil, l),
		consumer.NewRoleAutomation(repo.NewAssignmentRepo(db), bus, auto, l),
	} {
		c = consumer.Instrument(c)
		bus.Subscribe(c.Name(), c, c.Topics()...)
	}
	l.Warn("rabbitmq disabled; using in-process event bus")
	return bus, func() {}
}
