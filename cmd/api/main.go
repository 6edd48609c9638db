package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"timbel-weekly/internal/access"
	"timbel-weekly/internal/core/auth"
	"timbel-weekly/internal/core/cache"
	"timbel-weekly/internal/core/config"
	"timbel-weekly/internal/core/database"
	"timbel-weekly/internal/core/logger"
	"timbel-weekly/internal/core/server"
	"timbel-weekly/internal/domain"
	"timbel-weekly/internal/notify"
	"timbel-weekly/internal/repo"
	"timbel-weekly/internal/service"
	"timbel-weekly/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 自动迁移
	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.User{},
			&domain.Department{},
			&domain.Team{},
			&domain.WeeklyTask{},
			&domain.TaskNote{},
		); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// JWT
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	// 仓储
	users := repo.NewUserRepo(db)
	orgs := repo.NewOrgRepo(db)
	tasks := repo.NewTaskRepo(db)
	notes := repo.NewNoteRepo(db)

	// 档案缓存：没配 redis 就直连数据库
	var userCache *cache.Cache
	if cfg.Redis.Addr != "" {
		userCache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	acl := access.NewResolver(users, userCache, access.Options{
		StrictUnassigned: cfg.Access.StrictUnassigned,
		CacheTTL:         time.Duration(cfg.Access.CacheTTLSec) * time.Second,
	}, log)

	feed := notify.NewHub()

	weekly := service.NewWeeklyService(users, tasks, notes, acl, feed, service.Options{
		ReadTimeout:      time.Duration(cfg.Notes.ReadTimeoutSec) * time.Second,
		ProvisionRetries: cfg.Notes.ProvisionRetries,
	}, log)

	// 路由（员工端）
	r := router.NewAPIEngine(log, db, jwter, router.Deps{
		Weekly:       weekly,
		Access:       acl,
		Users:        users,
		Orgs:         orgs,
		WatchTimeout: time.Duration(cfg.Notes.WatchTimeoutSec) * time.Second,
	})

	// HTTP Server
	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("weekly api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("api_v1", baseURL+"/api/v1"),
	)

	// 异步启动
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("weekly api start FAILED", zap.Error(err))
		}
	}()
	log.Info("weekly api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("weekly api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
