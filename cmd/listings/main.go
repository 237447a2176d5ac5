package main

import (
	"context"

	"sweeps/internal/listings/events"
	"sweeps/internal/listings/handler"
	"sweeps/internal/listings/repository"
	"sweeps/internal/listings/service"
	"sweeps/internal/listings/validator"
	"sweeps/pkg/app"
	"sweeps/pkg/config"
	"sweeps/pkg/kafka"
	kafka_config "sweeps/pkg/kafka/config"
	kafka_middleware "sweeps/pkg/kafka/middleware"
)

const ServiceName = "listings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Listings service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg, serverApp)
	listingService := initServices(cfg, publisher)

	serverApp.SetApp(
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
		handler.NewListingHandler(listingService, cfg),
	)
	serverApp.Run()
}

// initPublisher returns nil when Kafka is disabled, which turns run events off.
func initPublisher(cfg *config.Config, serverApp *app.Application) service.EventPublisher {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	if !kafkaCfg.Enabled {
		cfg.Log.Info("Kafka disabled, run events will not be published")
		return nil
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.CleanedListingsTopic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(metrics.ProducerMiddleware())
	}

	serverApp.OnShutdown(func(context.Context) {
		metrics.Log(cfg.Log)
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka producer initialized", "topic", producer.Topic())
	return events.NewRunPublisher(producer)
}

func initServices(cfg *config.Config, publisher service.EventPublisher) service.ListingService {
	listingValidator := validator.NewListingValidator(cfg.MaxBatchRows)
	listingRepo := repository.NewMongoListingRepository(cfg)
	listingService := service.NewListingService(
		listingRepo,
		listingValidator,
		service.NewPipelineFromConfig(cfg),
		publisher,
		cfg,
	)

	cfg.Log.Info("Listing service initialized", "database", cfg.MongoDatabaseName)
	return listingService
}
