package events

import (
	"context"
	"errors"

	"sweeps/internal/listings/service"
	apperrors "sweeps/pkg/errors"
	"sweeps/pkg/kafka"
	"sweeps/pkg/logger"
	"sweeps/pkg/model"
)

// NewRawBatchHandler imports batches submitted on the raw-listings topic.
// Rejected batches are permanent failures and go to the DLQ; storage
// failures are transient and retried.
func NewRawBatchHandler(svc service.ListingService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if t := msg.GetEventType(); t != "" && t != EventRawBatch {
			log.Warn("Skipping message with unexpected event type", "event_type", t, "offset", msg.Offset)
			return nil
		}

		var req model.BatchRequest
		if err := msg.DecodeValue(&req); err != nil {
			return err
		}
		if req.Source == "" {
			req.Source, _ = msg.GetHeader(kafka.HeaderSource)
		}

		summary, err := svc.Import(ctx, &req)
		if err != nil {
			return classify(err)
		}

		log.Info("Raw batch imported",
			"event_id", msg.GetEventID(),
			"correlation_id", msg.GetCorrelationID(),
			"run_id", summary.RunID,
			"stored", summary.Stored,
		)
		return nil
	}
}

func classify(err error) error {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return kafka.NewTransientError("import failed", err)
	}
	switch appErr.Code {
	case apperrors.CodeValidation, apperrors.CodeInvalidInput:
		return kafka.NewBusinessError(appErr.Message, err).WithDetail("details", appErr.Details)
	case apperrors.CodeCancelled:
		return kafka.NewTransientError("import cancelled", err)
	default:
		return kafka.NewTransientError(appErr.Message, err)
	}
}
