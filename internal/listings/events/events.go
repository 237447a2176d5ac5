package events

import (
	"context"
	"fmt"

	"sweeps/pkg/kafka"
	"sweeps/pkg/model"
)

const (
	EventRunCompleted = "listings.run.completed"
	EventRawBatch     = "listings.batch.submitted"

	SchemaVersion = "1"
	Source        = "listings"
)

// RunCompleted is the payload of a cleaned-listings event. It carries the
// run summary, not the listings, which consumers read back by run ID.
type RunCompleted struct {
	RunID       string            `json:"run_id"`
	Source      string            `json:"source,omitempty"`
	Stored      int               `json:"stored"`
	Inserted    int64             `json:"inserted"`
	Updated     int64             `json:"updated"`
	Diagnostics model.Diagnostics `json:"diagnostics"`
}

// Publisher is the part of *kafka.Producer the run publisher uses.
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type RunPublisher struct {
	producer Publisher
}

func NewRunPublisher(producer Publisher) *RunPublisher {
	return &RunPublisher{producer: producer}
}

func (p *RunPublisher) PublishRunCompleted(ctx context.Context, summary *model.ImportSummary) error {
	msg, err := kafka.NewMessage().
		WithKey(summary.RunID).
		WithValue(RunCompleted{
			RunID:       summary.RunID,
			Source:      summary.Source,
			Stored:      summary.Stored,
			Inserted:    summary.Inserted,
			Updated:     summary.Updated,
			Diagnostics: summary.Diagnostics,
		}).
		WithEventType(EventRunCompleted).
		WithRunID(summary.RunID).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		return err
	}

	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish run %s: %w", summary.RunID, err)
	}
	return nil
}

// SubmitBatch publishes a raw batch for the worker to import. The batch
// source is the partition key, so batches from one source stay ordered.
func SubmitBatch(ctx context.Context, producer Publisher, req *model.BatchRequest) (string, error) {
	key := req.Source
	if key == "" {
		key = Source
	}
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(req).
		WithEventType(EventRawBatch).
		WithSchemaVersion(SchemaVersion).
		WithSource(req.Source).
		Build()
	if err != nil {
		return "", err
	}
	if err := producer.Publish(ctx, msg); err != nil {
		return "", fmt.Errorf("failed to submit batch: %w", err)
	}
	return msg.GetEventID(), nil
}
