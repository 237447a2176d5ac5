package service

import (
	"context"
	"runtime"
	"strings"
	"unicode/utf8"

	"sweeps/internal/dedupe"
	"sweeps/pkg/logger"
	"sweeps/pkg/model"
	"sweeps/pkg/reachability"
	"sweeps/pkg/sanitizer"

	"golang.org/x/sync/errgroup"
)

const (
	ShortTitleLength = 10
	LongTitleLength  = 100
)

// Pipeline cleans a batch of listing rows: it resolves dates, canonicalizes
// links, computes title signatures, removes duplicates and optionally drops
// rows whose links are unreachable. All state is scoped to one Process call.
type Pipeline struct {
	dates      *sanitizer.DateResolver
	urls       *sanitizer.URLCanonicalizer
	signatures *sanitizer.SignatureGenerator
	checker    reachability.Checker

	checkConcurrency int
	log              *logger.Logger
}

func NewPipeline(
	dates *sanitizer.DateResolver,
	urls *sanitizer.URLCanonicalizer,
	signatures *sanitizer.SignatureGenerator,
	checker reachability.Checker,
	checkConcurrency int,
	log *logger.Logger,
) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{
		dates:            dates,
		urls:             urls,
		signatures:       signatures,
		checker:          checker,
		checkConcurrency: checkConcurrency,
		log:              log,
	}
}

// rowFacts is everything derived from a single row. Computing it touches no
// shared state.
type rowFacts struct {
	listing    model.Listing
	titleLen   int
	httpLike   bool
	checkable  bool
	isHTTP     bool
	isHTTPS    bool
	host       string
	urlPresent bool
}

// Process never fails on row content. The only error it returns is the
// context's when ctx is cancelled.
func (p *Pipeline) Process(ctx context.Context, rows []model.Row, opts model.ProcessOptions) (*model.ProcessResult, error) {
	facts := make([]rowFacts, len(rows))
	if err := p.transform(ctx, rows, facts); err != nil {
		return nil, err
	}

	diag := model.Diagnostics{TotalRows: len(rows)}
	p.observe(facts, &diag)

	var groups []model.DuplicateGroup
	// removed is keyed by batch position. Reported groups carry RowIndex.
	removed := make(map[int]struct{})

	if opts.EnableExactURLDuplicateDetection {
		exact := dedupe.NewGrouper(model.GroupExactURL)
		for i := range facts {
			exact.Add(facts[i].listing.URLKey, i)
		}
		found := exact.Groups()
		diag.ExactURLGroups = len(found)
		for _, g := range found {
			diag.ExactURLDropped += len(g.Dropped())
			markRemoved(removed, g.Dropped())
		}
		groups = append(groups, withRowIndexes(facts, found)...)
	}

	if opts.EnableFuzzyDuplicateDetection {
		fuzzy := dedupe.NewGrouper(model.GroupFuzzyTitle)
		for i := range facts {
			fuzzy.Add(facts[i].listing.Signature, i)
		}
		found := fuzzy.Groups()
		diag.FuzzyTitleGroups = len(found)
		for _, g := range found {
			diag.FuzzyTitleDropped += len(g.Dropped())
			markRemoved(removed, g.Dropped())
		}
		groups = append(groups, withRowIndexes(facts, found)...)
	}
	diag.DuplicatesRemoved = len(removed)

	var unreachable []model.LiveCheck
	if opts.EnableLiveURLValidation {
		var err error
		unreachable, err = p.validateLinks(ctx, facts, removed, opts, &diag)
		if err != nil {
			return nil, err
		}
	}

	cleaned := make([]model.Listing, 0, len(rows)-len(removed))
	for i := range facts {
		if _, drop := removed[i]; drop {
			continue
		}
		cleaned = append(cleaned, facts[i].listing)
	}
	diag.CleanedRows = len(cleaned)
	diag.TotalRemoved = len(rows) - len(cleaned)

	if groups == nil {
		groups = []model.DuplicateGroup{}
	}

	p.log.Debug("Batch processed",
		"rows", diag.TotalRows,
		"cleaned", diag.CleanedRows,
		"exact_url_groups", diag.ExactURLGroups,
		"fuzzy_title_groups", diag.FuzzyTitleGroups,
		"live_checks", diag.LiveChecksPerformed,
	)

	return &model.ProcessResult{
		CleanedRows: cleaned,
		Diagnostics: diag,
		Groups:      groups,
		Unreachable: unreachable,
	}, nil
}

// transform derives per-row facts in parallel. Each worker writes only its
// own slots, so the result is ordered by input position.
func (p *Pipeline) transform(ctx context.Context, rows []model.Row, facts []rowFacts) error {
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(rows) + workers - 1) / workers
	if chunk == 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += chunk {
		start := start
		end := min(start+chunk, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				facts[i] = p.derive(rows[i])
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) derive(row model.Row) rowFacts {
	title := ""
	if !row.Title.IsEmpty() {
		title = sanitizer.SanitizeTitle(row.Title.String())
	}

	rawURL := ""
	if !row.URL.IsEmpty() {
		rawURL = strings.TrimSpace(row.URL.String())
	}
	canonical := p.urls.Canonicalize(rawURL)

	f := rowFacts{
		listing: model.Listing{
			Title:        title,
			URL:          rawURL,
			CanonicalURL: canonical,
			URLKey:       strings.ToLower(canonical),
			Signature:    p.signatures.Signature(row.Title),
			EndDate:      p.dates.Resolve(row.EndDate),
			RowIndex:     row.RowIndex,
			Extra:        row.Extra,
		},
		titleLen:   utf8.RuneCountInString(title),
		urlPresent: rawURL != "",
		checkable:  sanitizer.IsHTTPLike(canonical),
	}

	if f.urlPresent {
		lower := strings.ToLower(rawURL)
		f.isHTTPS = strings.HasPrefix(lower, "https://")
		f.isHTTP = strings.HasPrefix(lower, "http://")
		f.httpLike = sanitizer.IsHTTPLike(rawURL)
		f.host = p.urls.Host(canonical)
	}
	return f
}

func (p *Pipeline) observe(facts []rowFacts, diag *model.Diagnostics) {
	for i := range facts {
		f := &facts[i]

		switch {
		case f.titleLen == 0:
			diag.EmptyTitles++
		case f.titleLen < ShortTitleLength:
			diag.ShortTitles++
		case f.titleLen > LongTitleLength:
			diag.LongTitles++
		}

		if !f.listing.EndDate.IsResolved() {
			diag.UnresolvedEndDates++
		}

		if !f.urlPresent {
			diag.EmptyURLs++
			continue
		}
		switch {
		case f.isHTTPS:
			diag.HTTPSURLs++
		case f.isHTTP:
			diag.HTTPURLs++
		default:
			diag.OtherURLs++
		}
		if !f.httpLike {
			diag.NonHTTPURLs++
		}
		if f.host != "" {
			if diag.Domains == nil {
				diag.Domains = make(map[string]int)
			}
			diag.Domains[f.host]++
		}
	}
}

// validateLinks checks the distinct canonical links of surviving rows in
// first-seen order, up to the configured cap. Rows behind an unreachable
// link are added to removed. Links past the cap pass through unchecked.
func (p *Pipeline) validateLinks(
	ctx context.Context,
	facts []rowFacts,
	removed map[int]struct{},
	opts model.ProcessOptions,
	diag *model.Diagnostics,
) ([]model.LiveCheck, error) {
	var order []string
	rowsByURL := make(map[string][]int)
	for i := range facts {
		if _, gone := removed[i]; gone {
			continue
		}
		if !facts[i].checkable {
			continue
		}
		u := facts[i].listing.CanonicalURL
		if _, seen := rowsByURL[u]; !seen {
			order = append(order, u)
		}
		rowsByURL[u] = append(rowsByURL[u], i)
	}

	if p.checker == nil {
		if len(order) > 0 {
			p.log.Warn("Live URL validation requested without a checker, skipping",
				"urls", len(order),
			)
		}
		diag.LiveSkipped = len(order)
		return nil, nil
	}

	limit := max(opts.MaxLiveChecks, 0)
	toCheck := order
	if len(toCheck) > limit {
		toCheck = order[:limit]
		diag.LiveSkipped = len(order) - limit
	}
	if len(toCheck) == 0 {
		return nil, nil
	}

	results, err := reachability.CheckAll(ctx, p.checker, toCheck, opts.LiveCheckTimeout(), p.checkConcurrency)
	if err != nil {
		return nil, err
	}
	diag.LiveChecksPerformed = len(toCheck)

	var unreachable []model.LiveCheck
	for i, u := range toCheck {
		res := results[i]
		if res.Reachable {
			continue
		}
		diag.LiveUnreachable++
		rowIdx := rowsByURL[u]
		markRemoved(removed, rowIdx)
		diag.LiveDropped += len(rowIdx)

		check := model.LiveCheck{URL: u, StatusCode: res.StatusCode, Rows: rowIndexes(facts, rowIdx)}
		if res.Err != nil {
			check.Error = res.Err.Error()
		}
		unreachable = append(unreachable, check)

		p.log.Debug("Link unreachable",
			"url", u,
			"status", res.StatusCode,
			"rows", len(rowIdx),
		)
	}
	return unreachable, nil
}

// withRowIndexes rewrites group members from batch positions to the rows'
// own RowIndex values.
func withRowIndexes(facts []rowFacts, groups []model.DuplicateGroup) []model.DuplicateGroup {
	for i := range groups {
		groups[i].Members = rowIndexes(facts, groups[i].Members)
	}
	return groups
}

func rowIndexes(facts []rowFacts, positions []int) []int {
	out := make([]int, len(positions))
	for i, pos := range positions {
		out[i] = facts[pos].listing.RowIndex
	}
	return out
}

func markRemoved(removed map[int]struct{}, idx []int) {
	for _, i := range idx {
		removed[i] = struct{}{}
	}
}
