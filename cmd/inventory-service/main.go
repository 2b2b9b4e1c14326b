package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ticketblitz/internal/inventory"
	"ticketblitz/internal/pkg/bootstrap"
	"ticketblitz/internal/pkg/config"
	"ticketblitz/internal/pkg/logger"
	"ticketblitz/internal/pkg/rowlock"
)

const serviceName = "inventory-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8082"
	}
	log := logger.New(serviceName, cfg.LogLevel)

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql failed")
	}

	repo := inventory.NewRepo(db)
	if err := repo.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("migrate events table failed")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	cache := inventory.NewRedisCache(rdb, cfg.Tunables.CacheTTL, log)

	svc := inventory.NewService(repo, cache, rowlock.NewManager(), cfg.Tunables.LockWait, log)
	handler := inventory.NewHandler(svc)

	bootstrap.Run(bootstrap.App{
		ServiceName:    serviceName,
		HTTPAddr:       cfg.HTTPAddr,
		JaegerEndpoint: cfg.JaegerEndpoint,
		RegisterRoutes: handler.Register,
		OnShutdown: []func(ctx context.Context){
			func(context.Context) {
				if err := rdb.Close(); err != nil {
					log.Error().Err(err).Msg("close redis failed")
				}
			},
		},
	}, log)
}
