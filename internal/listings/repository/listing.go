package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	listingserrors "sweeps/internal/listings/errors"
	"sweeps/pkg/config"
	mongotx "sweeps/pkg/db/mongo"
	"sweeps/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName     = "Listings"
	RunsCollectionName = "Listing_runs"
)

// UpsertResult counts how a batch landed in the store.
type UpsertResult struct {
	Inserted int64
	Updated  int64
}

type ListingRepository interface {
	UpsertMany(ctx context.Context, listings []model.Listing) (UpsertResult, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, error)
	FindByURLKey(ctx context.Context, urlKey string) (*model.Listing, error)
	FindByRunID(ctx context.Context, runID string, limit int, offset int64) ([]*model.Listing, error)
	Count(ctx context.Context) (int64, error)
	CountByRunID(ctx context.Context, runID string) (int64, error)

	SaveRun(ctx context.Context, run *model.ImportSummary) error
	FindRun(ctx context.Context, runID string) (*model.ImportSummary, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoListingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	runs       *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoListingRepository(cfg *config.Config) ListingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoListingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		runs:       db.Collection(RunsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout bounds ctx unless it is a transaction's SessionContext, which
// cannot be wrapped without losing the session.
func (r *mongoListingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			return context.WithTimeout(ctx, remaining)
		}
	}
	return context.WithTimeout(ctx, timeout)
}

// upsertFilter is the identity a listing is stored under. Rows with a URL
// key are unique on it; rows without one fall back to their signature
// among other URL-less rows. A listing with neither has no identity.
func upsertFilter(l *model.Listing) (bson.M, bool) {
	if l.URLKey != "" {
		return bson.M{"url_key": l.URLKey}, true
	}
	if l.Signature != "" {
		return bson.M{"url_key": "", "signature": l.Signature}, true
	}
	return nil, false
}

func upsertModels(listings []model.Listing) []mongo.WriteModel {
	models := make([]mongo.WriteModel, 0, len(listings))
	for i := range listings {
		l := listings[i]
		l.ID = ""
		filter, ok := upsertFilter(&l)
		if !ok {
			models = append(models, mongo.NewInsertOneModel().SetDocument(l))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(l).
			SetUpsert(true))
	}
	return models
}

func (r *mongoListingRepository) UpsertMany(ctx context.Context, listings []model.Listing) (UpsertResult, error) {
	if len(listings) == 0 {
		return UpsertResult{}, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.BulkWrite(ctx, upsertModels(listings), options.BulkWrite().SetOrdered(true))
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to upsert listings: %w", err)
	}

	return UpsertResult{
		Inserted: res.InsertedCount + res.UpsertedCount,
		Updated:  res.MatchedCount,
	}, nil
}

func (r *mongoListingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, error) {
	return r.find(ctx, bson.M{}, limit, offset)
}

func (r *mongoListingRepository) FindByRunID(ctx context.Context, runID string, limit int, offset int64) ([]*model.Listing, error) {
	return r.find(ctx, bson.M{"run_id": runID}, limit, offset)
}

func (r *mongoListingRepository) find(ctx context.Context, filter bson.M, limit int, offset int64) ([]*model.Listing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "imported_at", Value: -1}, {Key: "row_index", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := make([]*model.Listing, 0)
	if err = cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

func (r *mongoListingRepository) FindByURLKey(ctx context.Context, urlKey string) (*model.Listing, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var l model.Listing
	err := r.collection.FindOne(ctx, bson.M{"url_key": urlKey}).Decode(&l)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", listingserrors.ErrNotFound, urlKey)
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &l, nil
}

func (r *mongoListingRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, bson.M{})
}

func (r *mongoListingRepository) CountByRunID(ctx context.Context, runID string) (int64, error) {
	return r.count(ctx, bson.M{"run_id": runID})
}

func (r *mongoListingRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

func (r *mongoListingRepository) SaveRun(ctx context.Context, run *model.ImportSummary) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.runs.ReplaceOne(ctx, bson.M{"_id": run.RunID}, run, opts); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (r *mongoListingRepository) FindRun(ctx context.Context, runID string) (*model.ImportSummary, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var run model.ImportSummary
	err := r.runs.FindOne(ctx, bson.M{"_id": runID}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: run %s", listingserrors.ErrNotFound, runID)
		}
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return &run, nil
}

func (r *mongoListingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
