package main

import (
	"context"

	mongoMigration "sweeps/internal/migrations/mongo"
	"sweeps/pkg/config"
)

const (
	JobName = "mongo-migration"
)

func main() {
	cfg := config.Load(JobName)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Mongo migration job")
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
