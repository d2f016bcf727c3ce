package main

import (
	"context"
	"fmt"
	"log"

	"vuln-tracker/internal/config"
	"vuln-tracker/internal/database"
	"vuln-tracker/internal/handlers"
	"vuln-tracker/internal/idalloc"
	"vuln-tracker/internal/logging"
	"vuln-tracker/internal/server"
	"vuln-tracker/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{
		Driver:  cfg.DBDriver,
		DSN:     cfg.DBDSN,
		MaxWait: cfg.DBConnectMaxWait,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("database init failed", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if cfg.SeedFile != "" {
		n, err := database.SeedFromFile(ctx, db, cfg.SeedFile, logger)
		if err != nil {
			logger.Fatal("seed failed", zap.String("file", cfg.SeedFile), zap.Error(err))
		}
		logger.Info("seed complete", zap.Int("created", n))
	}

	var alloc idalloc.Allocator = idalloc.NewCounterAllocator()
	if cfg.IDAllocator == config.AllocatorRedis {
		ra, err := idalloc.NewRedisAllocatorFromURL(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis allocator init failed", zap.Error(err))
		}
		defer func() { _ = ra.Close() }()
		alloc = ra
	}
	logger.Info("incident id allocator", zap.String("backend", cfg.IDAllocator))

	svc := service.New(db, alloc, logger)
	r := server.NewRouter(cfg, handlers.New(svc, logger), logger)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	logger.Info("starting server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
