package main

import (
	"context"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ticketblitz/internal/outbox"
	"ticketblitz/internal/payment"
	"ticketblitz/internal/pkg/bootstrap"
	"ticketblitz/internal/pkg/breaker"
	"ticketblitz/internal/pkg/config"
	"ticketblitz/internal/pkg/logger"
	"ticketblitz/internal/pkg/mq"
	"ticketblitz/internal/saga"
)

const (
	serviceName   = "payment-service"
	consumerGroup = "payment-group"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8083"
	}
	log := logger.New(serviceName, cfg.LogLevel)

	db, err := gorm.Open(mysql.Open(cfg.MySQLDSN), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql failed")
	}

	paymentRepo := payment.NewRepo(db)
	outboxRepo := outbox.NewRepo(db)
	for _, migrate := range []func() error{paymentRepo.Migrate, outboxRepo.Migrate} {
		if err := migrate(); err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
	}

	processor, err := payment.NewOmiseProcessor(cfg.OmisePublicKey, cfg.OmiseSecretKey, cfg.OmiseCurrency)
	if err != nil {
		log.Fatal().Err(err).Msg("init payment provider failed, check OMISE_PUBLIC_KEY / OMISE_SECRET_KEY")
	}

	brk := breaker.New(breaker.Config{
		FailureRate: cfg.Tunables.Breaker.FailureRate,
		MinRequests: cfg.Tunables.Breaker.MinRequests,
		OpenTimeout: cfg.Tunables.Breaker.OpenTimeout,
		HalfOpenMax: cfg.Tunables.Breaker.HalfOpenMax,
	})

	svc := payment.NewService(paymentRepo, outboxRepo, processor, brk, log)
	consumer := payment.NewConsumer(cfg.KafkaBrokers, consumerGroup, svc, log)

	producer := mq.NewTopicProducer(cfg.KafkaBrokers, saga.TopicPaymentUpdated)
	relay := outbox.NewRelay(outboxRepo, producer, cfg.Tunables.RelayInterval, cfg.Tunables.RelayBatchSize, log)

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	relay.Start(ctx)

	bootstrap.Run(bootstrap.App{
		ServiceName:    serviceName,
		HTTPAddr:       cfg.HTTPAddr,
		JaegerEndpoint: cfg.JaegerEndpoint,
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
