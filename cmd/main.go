package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"traderadar/backend/internal/api/handler"
	"traderadar/backend/internal/config"
	"traderadar/backend/internal/localization"
	"traderadar/backend/internal/storage"
)

func setupDependencies(cfg config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CallTimeout)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to connect Redis", zap.Error(err))
	}

	// 3. Міграції (Створення таблиць)
	if err := storage.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	logger.Info("database and redis connections established, migrations complete")
	return db, rdb
}

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return logger
}

func main() {
	cfg, envFound, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)
	defer logger.Sync()
	if !envFound {
		logger.Warn("no .env file, using process environment")
	}
	logger.Info("starting Trade Radar backend", zap.String("env", cfg.AppEnv))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(cfg, logger)
	defer rdb.Close()

	cache, err := storage.NewListCache(1<<24, cfg.CacheTTL)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	s := storage.NewStorageService(db, rdb, cache, logger.Named("storage"))
	s.StartInvalidationListener(ctx)

	loc, err := localization.NewEmbedded()
	if err != nil {
		logger.Fatal("localization", zap.Error(err))
	}

	// 2. Налаштування Gin та роутингу
	h := handler.NewHandler(s, loc, logger.Named("http"), handler.Options{
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		NearbyRadiusMeters: cfg.NearbyRadiusMeters,
		CallTimeout:        cfg.CallTimeout,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        h.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		logger.Info("http listening", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http", zap.Error(err))
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	ctxShut, cancelShut := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShut()
	_ = server.Shutdown(ctxShut)
	logger.Info("shutdown complete")
}
