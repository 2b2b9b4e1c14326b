package main

import (
	"context"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ticketblitz/internal/booking"
	"ticketblitz/internal/clients"
	"ticketblitz/internal/outbox"
	"ticketblitz/internal/pkg/bootstrap"
	"ticketblitz/internal/pkg/config"
	"ticketblitz/internal/pkg/httpclient"
	"ticketblitz/internal/pkg/logger"
	"ticketblitz/internal/pkg/mq"
	"ticketblitz/internal/reconciler"
	"ticketblitz/internal/saga"
)

const (
	serviceName   = "booking-service"
	consumerGroup = "booking-group"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	log := logger.New(serviceName, cfg.LogLevel)

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql failed")
	}

	bookingRepo := booking.NewRepo(db)
	outboxRepo := outbox.NewRepo(db)
	for _, migrate := range []func() error{bookingRepo.Migrate, outboxRepo.Migrate} {
		if err := migrate(); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	httpc := httpclient.New(otel.Tracer(serviceName), cfg.Tunables.HTTPTimeout)
	userClient := clients.NewUserHTTPClient(httpc, cfg.UserServiceURL)
	inventoryClient := clients.NewInventoryHTTPClient(httpc, cfg.InventoryServiceURL)

	bookingSvc := booking.NewService(bookingRepo, outboxRepo, userClient, inventoryClient, cfg.CustomerEmail, log)
	handler := booking.NewHandler(bookingSvc)

	// 对账消费者和 outbox 中继与 HTTP 服务同进程运行
	reconcilerSvc := reconciler.NewService(
		bookingRepo,
		inventoryClient,
		cfg.Tunables.ReleaseRetries,
		cfg.Tunables.ReleaseBackoff,
		log,
	)
	consumer := reconciler.NewConsumer(cfg.KafkaBrokers, consumerGroup, reconcilerSvc, log)

	producer := mq.NewTopicProducer(cfg.KafkaBrokers, saga.TopicBookingCreated)
	relay := outbox.NewRelay(outboxRepo, producer, cfg.Tunables.RelayInterval, cfg.Tunables.RelayBatchSize, log)

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	relay.Start(ctx)

	bootstrap.Run(bootstrap.App{
		ServiceName:    serviceName,
		HTTPAddr:       cfg.HTTPAddr,
		JaegerEndpoint: cfg.JaegerEndpoint,
		RegisterRoutes: handler.Register,
		OnShutdown: []func(ctx context.Context){
			func(context.Context) {
				cancel()
				if err := consumer.Stop(); err != nil {
					log.Error().Err(err).Msg("stop consumer failed")
				}
				relay.Stop()
				if err := producer.Close(); err != nil {
					log.Error().Err(err).Msg("close producer failed")
				}
			},
		},
	}, log)
}
