package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	listingserrors "sweeps/internal/listings/errors"
	"sweeps/internal/listings/repository"
	"sweeps/internal/listings/validator"
	"sweeps/pkg/config"
	apperrors "sweeps/pkg/errors"
	"sweeps/pkg/model"
	"sweeps/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// EventPublisher announces completed runs to downstream consumers.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, summary *model.ImportSummary) error
}

type ListingService interface {
	// Validate runs the pipeline without persisting anything.
	Validate(ctx context.Context, req *model.BatchRequest) (*model.ProcessResult, error)
	// Import runs the pipeline and stores the cleaned rows under a new run.
	Import(ctx context.Context, req *model.BatchRequest) (*model.ImportSummary, error)

	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, int64, error)
	GetByURL(ctx context.Context, rawURL string) (*model.Listing, error)
	GetRun(ctx context.Context, runID string) (*model.ImportSummary, error)
	GetRunListings(ctx context.Context, runID string, limit int, offset int64) ([]*model.Listing, int64, error)
}

type listingService struct {
	repo      repository.ListingRepository
	validator *validator.ListingValidator
	pipeline  *Pipeline
	urls      *sanitizer.URLCanonicalizer
	publisher EventPublisher
	cfg       *config.Config
	now       func() time.Time
	newRunID  func() string
}

// NewListingService builds the service. publisher may be nil when event
// publishing is disabled.
func NewListingService(
	repo repository.ListingRepository,
	validator *validator.ListingValidator,
	pipeline *Pipeline,
	publisher EventPublisher,
	cfg *config.Config,
) ListingService {
	return &listingService{
		repo:      repo,
		validator: validator,
		pipeline:  pipeline,
		urls:      sanitizer.NewURLCanonicalizer(cfg.TrackingParams()),
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		newRunID:  func() string { return uuid.New().String() },
	}
}

func (s *listingService) Validate(ctx context.Context, req *model.BatchRequest) (*model.ProcessResult, error) {
	opts, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	result, err := s.pipeline.Process(ctx, req.Rows, opts)
	if err != nil {
		return nil, apperrors.FromContext(err, "Batch validation")
	}

	s.cfg.Log.Info("Batch validated",
		"source", req.Source,
		"rows", result.Diagnostics.TotalRows,
		"cleaned", result.Diagnostics.CleanedRows,
		"duplicates_removed", result.Diagnostics.DuplicatesRemoved,
		"live_dropped", result.Diagnostics.LiveDropped,
	)
	return result, nil
}

func (s *listingService) Import(ctx context.Context, req *model.BatchRequest) (*model.ImportSummary, error) {
	opts, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	runID := s.newRunID()
	log := s.cfg.Log.ForRun(runID)

	result, err := s.pipeline.Process(ctx, req.Rows, opts)
	if err != nil {
		return nil, apperrors.FromContext(err, "Batch import")
	}

	importedAt := s.now()
	for i := range result.CleanedRows {
		result.CleanedRows[i].RunID = runID
		result.CleanedRows[i].ImportedAt = importedAt
	}

	summary := &model.ImportSummary{
		RunID:       runID,
		Source:      req.Source,
		Options:     opts,
		Stored:      len(result.CleanedRows),
		Diagnostics: result.Diagnostics,
		Groups:      result.Groups,
		Unreachable: result.Unreachable,
		CreatedAt:   importedAt,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := s.repo.UpsertMany(sessCtx, result.CleanedRows)
		if err != nil {
			return fmt.Errorf("failed to store listings: %w", err)
		}
		summary.Inserted = res.Inserted
		summary.Updated = res.Updated

		if err := s.repo.SaveRun(sessCtx, summary); err != nil {
			return fmt.Errorf("failed to store run: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to import batch", "source", req.Source, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperrors.FromContext(ctxErr, "Batch import")
		}
		return nil, apperrors.Internal("Failed to store listings", err)
	}

	log.Info("Batch imported",
		"source", req.Source,
		"rows", summary.Diagnostics.TotalRows,
		"stored", summary.Stored,
		"inserted", summary.Inserted,
		"updated", summary.Updated,
		"duplicates_removed", summary.Diagnostics.DuplicatesRemoved,
		"live_dropped", summary.Diagnostics.LiveDropped,
	)

	if s.publisher != nil {
		if err := s.publisher.PublishRunCompleted(ctx, summary); err != nil {
			log.Warn("Failed to publish run event", "error", err)
		}
	}

	return summary, nil
}

// prepare validates the request and resolves the effective options.
func (s *listingService) prepare(req *model.BatchRequest) (model.ProcessOptions, error) {
	if req == nil || len(req.Rows) == 0 {
		return model.ProcessOptions{}, apperrors.Validation(listingserrors.ErrEmptyBatch.Error(), map[string]any{
			"rows": "is required",
		})
	}

	if err := s.validator.ValidateBatch(req); err != nil {
		s.cfg.Log.Warn("Batch validation failed", "source", req.Source, "rows", len(req.Rows), "error", err)
		return model.ProcessOptions{}, validationError("Batch validation failed", err)
	}

	opts := s.cfg.ProcessOptions()
	if req.Options != nil {
		opts = *req.Options
		if err := s.validator.ValidateOptions(&opts); err != nil {
			return model.ProcessOptions{}, validationError(listingserrors.ErrInvalidOptions.Error(), err)
		}
	}
	return opts, nil
}

func validationError(message string, err error) *apperrors.AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func (s *listingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Listing, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	listings, err := s.repo.FindAll(ctx, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to get listings", "limit", limit, "offset", offset, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve listings", err)
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to count listings", "error", err)
		return nil, 0, apperrors.Internal("Failed to count listings", err)
	}

	return listings, count, nil
}

// GetByURL looks a listing up by any spelling of its link: the input goes
// through the same canonicalization as imported rows.
func (s *listingService) GetByURL(ctx context.Context, rawURL string) (*model.Listing, error) {
	key := s.urls.URLKey(strings.TrimSpace(rawURL))
	if key == "" {
		return nil, apperrors.InvalidInput("URL cannot be empty")
	}

	listing, err := s.repo.FindByURLKey(ctx, key)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Listing", key)
		}
		s.cfg.Log.Error("Failed to get listing by URL", "url_key", key, "error", err)
		return nil, apperrors.Internal("Failed to retrieve listing", err)
	}
	return listing, nil
}

func (s *listingService) GetRun(ctx context.Context, runID string) (*model.ImportSummary, error) {
	if err := uuid.Validate(runID); err != nil {
		return nil, apperrors.InvalidInput("Invalid run ID format")
	}

	run, err := s.repo.FindRun(ctx, runID)
	if err != nil {
		if errors.Is(err, listingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Run", runID)
		}
		s.cfg.Log.Error("Failed to get run", "run_id", runID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve run", err)
	}
	return run, nil
}

func (s *listingService) GetRunListings(ctx context.Context, runID string, limit int, offset int64) ([]*model.Listing, int64, error) {
	if err := uuid.Validate(runID); err != nil {
		return nil, 0, apperrors.InvalidInput("Invalid run ID format")
	}
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	listings, err := s.repo.FindByRunID(ctx, runID, limit, offset)
	if err != nil {
		s.cfg.Log.Error("Failed to get run listings", "run_id", runID, "error", err)
		return nil, 0, apperrors.Internal("Failed to retrieve listings", err)
	}
	count, err := s.repo.CountByRunID(ctx, runID)
	if err != nil {
		s.cfg.Log.Error("Failed to count run listings", "run_id", runID, "error", err)
		return nil, 0, apperrors.Internal("Failed to count listings", err)
	}
	return listings, count, nil
}
