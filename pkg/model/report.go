package model

import (
	"sort"
	"time"
)

const (
	DefaultMaxLiveChecks      = 50
	DefaultLiveCheckTimeoutMs = 10000
)

// ProcessOptions toggles the cleaning passes for one batch.
type ProcessOptions struct {
	EnableFuzzyDuplicateDetection    bool  `json:"enable_fuzzy_duplicate_detection" bson:"enable_fuzzy_duplicate_detection" toml:"enable_fuzzy_duplicate_detection"`
	EnableExactURLDuplicateDetection bool  `json:"enable_exact_url_duplicate_detection" bson:"enable_exact_url_duplicate_detection" toml:"enable_exact_url_duplicate_detection"`
	EnableLiveURLValidation          bool  `json:"enable_live_url_validation" bson:"enable_live_url_validation" toml:"enable_live_url_validation"`
	MaxLiveChecks                    int   `json:"max_live_checks" bson:"max_live_checks" toml:"max_live_checks" validate:"gte=0,lte=10000"`
	LiveCheckTimeoutMs               int64 `json:"live_check_timeout_ms" bson:"live_check_timeout_ms" toml:"live_check_timeout_ms" validate:"gte=0,lte=120000"`
}

func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		EnableFuzzyDuplicateDetection:    false,
		EnableExactURLDuplicateDetection: true,
		EnableLiveURLValidation:          false,
		MaxLiveChecks:                    DefaultMaxLiveChecks,
		LiveCheckTimeoutMs:               DefaultLiveCheckTimeoutMs,
	}
}

func (o ProcessOptions) LiveCheckTimeout() time.Duration {
	if o.LiveCheckTimeoutMs <= 0 {
		return DefaultLiveCheckTimeoutMs * time.Millisecond
	}
	return time.Duration(o.LiveCheckTimeoutMs) * time.Millisecond
}

// Diagnostics are observational counts over one batch. They never affect
// which rows are kept.
type Diagnostics struct {
	TotalRows   int `json:"total_rows" bson:"total_rows"`
	CleanedRows int `json:"cleaned_rows" bson:"cleaned_rows"`

	ExactURLGroups    int `json:"exact_url_groups" bson:"exact_url_groups"`
	ExactURLDropped   int `json:"exact_url_dropped" bson:"exact_url_dropped"`
	FuzzyTitleGroups  int `json:"fuzzy_title_groups" bson:"fuzzy_title_groups"`
	FuzzyTitleDropped int `json:"fuzzy_title_dropped" bson:"fuzzy_title_dropped"`
	DuplicatesRemoved int `json:"duplicates_removed" bson:"duplicates_removed"`
	TotalRemoved      int `json:"total_removed" bson:"total_removed"`

	EmptyTitles        int `json:"empty_titles" bson:"empty_titles"`
	EmptyURLs          int `json:"empty_urls" bson:"empty_urls"`
	ShortTitles        int `json:"short_titles" bson:"short_titles"`
	LongTitles         int `json:"long_titles" bson:"long_titles"`
	UnresolvedEndDates int `json:"unresolved_end_dates" bson:"unresolved_end_dates"`
	NonHTTPURLs        int `json:"non_http_urls" bson:"non_http_urls"`

	HTTPSURLs int            `json:"https_urls" bson:"https_urls"`
	HTTPURLs  int            `json:"http_urls" bson:"http_urls"`
	OtherURLs int            `json:"other_urls" bson:"other_urls"`
	Domains   map[string]int `json:"domains,omitempty" bson:"domains,omitempty"`

	LiveChecksPerformed int `json:"live_checks_performed" bson:"live_checks_performed"`
	LiveUnreachable     int `json:"live_unreachable" bson:"live_unreachable"`
	LiveSkipped         int `json:"live_skipped" bson:"live_skipped"`
	LiveDropped         int `json:"live_dropped" bson:"live_dropped"`
}

type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// TopDomains returns the n most frequent hosts, ties broken alphabetically.
func (d *Diagnostics) TopDomains(n int) []DomainCount {
	out := make([]DomainCount, 0, len(d.Domains))
	for domain, count := range d.Domains {
		out = append(out, DomainCount{Domain: domain, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// LiveCheck records a canonical URL that failed reachability and the
// RowIndex of every row that carried it.
type LiveCheck struct {
	URL        string `json:"url" bson:"url"`
	StatusCode int    `json:"status_code,omitempty" bson:"status_code,omitempty"`
	Error      string `json:"error,omitempty" bson:"error,omitempty"`
	Rows       []int  `json:"rows" bson:"rows"`
}

type ProcessResult struct {
	CleanedRows []Listing        `json:"cleaned_rows"`
	Diagnostics Diagnostics      `json:"diagnostics"`
	Groups      []DuplicateGroup `json:"groups"`
	Unreachable []LiveCheck      `json:"unreachable,omitempty"`
}
