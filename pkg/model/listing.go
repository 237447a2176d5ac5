package model

import "time"

type Listing struct {
	ID           string            `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Title        string            `json:"title" bson:"title" validate:"max=1000"`
	URL          string            `json:"url" bson:"url" validate:"max=4096"`
	CanonicalURL string            `json:"canonical_url" bson:"canonical_url" validate:"max=4096"`
	URLKey       string            `json:"url_key" bson:"url_key"`
	Signature    string            `json:"signature" bson:"signature"`
	EndDate      ResolvedDate      `json:"end_date" bson:"end_date"`
	RowIndex     int               `json:"row_index" bson:"row_index" validate:"min=0"`
	Extra        map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
	RunID        string            `json:"run_id" bson:"run_id" validate:"required,uuid4"`
	ImportedAt   time.Time         `json:"imported_at" bson:"imported_at"`
}
