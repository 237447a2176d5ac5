package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sweeps/internal/listings/repository"
	"sweeps/internal/migrations/mongo/validators"
	"sweeps/pkg/logger"
)

var (
	ListingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "url_key", Value: 1}},
			Options: options.Index().
				SetName("url_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"url_key": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "signature", Value: 1}},
			Options: options.Index().
				SetName("signature_without_url_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"url_key":   "",
					"signature": bson.M{"$gt": ""},
				}),
		},
		{Keys: bson.D{{Key: "end_date.key", Value: 1}}},
		{Keys: bson.D{{Key: "run_id", Value: 1}, {Key: "row_index", Value: 1}}},
		{Keys: bson.D{{Key: "imported_at", Value: -1}, {Key: "row_index", Value: 1}}},
	}

	ListingRunsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "source", Value: 1}, {Key: "created_at", Value: -1}}},
	}
)

type CollectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists what RunMigration ensures, in creation order.
func Collections() []CollectionDef {
	return []CollectionDef{
		{
			Name:      repository.CollectionName,
			Indexes:   ListingsIndexes,
			Validator: validators.ListingValidator,
		},
		{
			Name:      repository.RunsCollectionName,
			Indexes:   ListingRunsIndexes,
			Validator: validators.ListingRunValidator,
		},
	}
}

// RunMigration creates missing collections, refreshes validators on existing
// ones and ensures indexes. It is safe to run repeatedly.
func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	names, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", names)
	return nil
}
