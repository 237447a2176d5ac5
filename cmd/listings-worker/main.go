package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweeps/internal/listings/events"
	"sweeps/internal/listings/repository"
	"sweeps/internal/listings/service"
	"sweeps/internal/listings/validator"
	"sweeps/pkg/config"
	"sweeps/pkg/kafka"
	kafka_config "sweeps/pkg/kafka/config"
	kafka_middleware "sweeps/pkg/kafka/middleware"
)

const (
	ServiceName = "listings-worker"

	metricsInterval = time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.Log.Info("Starting Listings worker")

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.CleanedListingsTopic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	listingService := service.NewListingService(
		repository.NewMongoListingRepository(cfg),
		validator.NewListingValidator(cfg.MaxBatchRows),
		service.NewPipelineFromConfig(cfg),
		events.NewRunPublisher(producer),
		cfg,
	)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.RawListingsTopic,
		kafkaCfg.ConsumerGroupID,
		kafkaCfg.DLQTopic,
		events.NewRawBatchHandler(listingService, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	consumer.Use(metrics.ConsumerMiddleware())
	producer.Use(metrics.ProducerMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reportMetrics(ctx, metrics, cfg)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped with error", "error", err)
	}

	cfg.Log.Info("Shutdown signal received, stopping worker")
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	metrics.Log(cfg.Log)
	cfg.Log.Info("Worker stopped gracefully")
}

func reportMetrics(ctx context.Context, metrics *kafka_middleware.Metrics, cfg *config.Config) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			metrics.Log(cfg.Log)
		case <-ctx.Done():
			return
		}
	}
}
