package model

import "time"

// BatchRequest is the body of the validate and import endpoints and the
// payload of raw-batch events. Options nil means the service defaults.
type BatchRequest struct {
	Source  string          `json:"source,omitempty" validate:"max=200"`
	Rows    []Row           `json:"rows" validate:"required,min=1,dive"`
	Options *ProcessOptions `json:"options,omitempty"`
}

// ImportSummary describes one persisted run. It is stored in the runs
// collection keyed by RunID and published on the cleaned-listings topic.
type ImportSummary struct {
	RunID       string           `json:"run_id" bson:"_id"`
	Source      string           `json:"source,omitempty" bson:"source,omitempty"`
	Options     ProcessOptions   `json:"options" bson:"options"`
	Stored      int              `json:"stored" bson:"stored"`
	Inserted    int64            `json:"inserted" bson:"inserted"`
	Updated     int64            `json:"updated" bson:"updated"`
	Diagnostics Diagnostics      `json:"diagnostics" bson:"diagnostics"`
	Groups      []DuplicateGroup `json:"groups" bson:"groups"`
	Unreachable []LiveCheck      `json:"unreachable,omitempty" bson:"unreachable,omitempty"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
}
