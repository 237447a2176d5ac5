package model

type Row struct {
	Title    RawValue          `json:"title"`
	URL      RawValue          `json:"url"`
	EndDate  RawValue          `json:"end_date"`
	RowIndex int               `json:"row_index"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// ResolvedDate is the outcome of date resolution. EpochMillis is nil exactly
// when the input could not be resolved, and then both string forms are empty.
type ResolvedDate struct {
	EpochMillis *int64 `json:"epoch_millis" bson:"epoch_millis,omitempty"`
	DisplayDate string `json:"display_date" bson:"display_date"`
	Key         string `json:"key" bson:"key"`
}

func (d ResolvedDate) IsResolved() bool {
	return d.EpochMillis != nil
}

type GroupKind string

const (
	GroupExactURL   GroupKind = "exact_url"
	GroupFuzzyTitle GroupKind = "fuzzy_title"
)

// DuplicateGroup lists the row indexes sharing one key, in input order.
// Members always holds at least two indexes; Members[0] is the kept row.
type DuplicateGroup struct {
	Key     string    `json:"key" bson:"key"`
	Kind    GroupKind `json:"kind" bson:"kind"`
	Members []int     `json:"members" bson:"members"`
}

func (g DuplicateGroup) Dropped() []int {
	if len(g.Members) < 2 {
		return nil
	}
	return g.Members[1:]
}
