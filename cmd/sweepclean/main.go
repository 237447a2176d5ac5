package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweeps/internal/ingest"
	"sweeps/internal/listings/events"
	"sweeps/internal/listings/service"
	"sweeps/pkg/config"
	"sweeps/pkg/kafka"
	kafka_config "sweeps/pkg/kafka/config"
	"sweeps/pkg/logger"
	"sweeps/pkg/model"
)

const (
	ServiceName = "sweepclean"

	topDomains = 10
)

type options struct {
	in      string
	out     string
	source  string
	publish bool
	process model.ProcessOptions
}

// parseFlags applies command-line overrides on top of the configured
// pipeline defaults.
func parseFlags(args []string, defaults model.ProcessOptions) (options, error) {
	opts := options{process: defaults}

	fs := flag.NewFlagSet(ServiceName, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.in, "in", "", "CSV file to clean (required)")
	fs.StringVar(&opts.out, "out", "", "Write cleaned rows to this CSV file")
	fs.StringVar(&opts.source, "source", "", "Source label for published batches (default: input file name)")
	fs.BoolVar(&opts.publish, "publish", false, "Submit the raw rows to the Kafka raw listings topic instead of cleaning locally")
	fs.BoolVar(&opts.process.EnableFuzzyDuplicateDetection, "fuzzy", defaults.EnableFuzzyDuplicateDetection, "Drop rows whose title signature repeats")
	fs.BoolVar(&opts.process.EnableExactURLDuplicateDetection, "exact-url", defaults.EnableExactURLDuplicateDetection, "Drop rows whose canonical link repeats")
	fs.BoolVar(&opts.process.EnableLiveURLValidation, "live", defaults.EnableLiveURLValidation, "Drop rows whose link does not answer")
	fs.IntVar(&opts.process.MaxLiveChecks, "max-live-checks", defaults.MaxLiveChecks, "Maximum distinct links to check")
	fs.Int64Var(&opts.process.LiveCheckTimeoutMs, "live-timeout-ms", defaults.LiveCheckTimeoutMs, "Per-link check timeout in milliseconds")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.in == "" {
		return options{}, errors.New("-in is required")
	}
	if opts.process.MaxLiveChecks < 0 {
		return options{}, fmt.Errorf("-max-live-checks cannot be negative, got %d", opts.process.MaxLiveChecks)
	}
	if opts.process.LiveCheckTimeoutMs < 0 {
		return options{}, fmt.Errorf("-live-timeout-ms cannot be negative, got %d", opts.process.LiveCheckTimeoutMs)
	}
	if opts.source == "" {
		opts.source = opts.in
	}
	return opts, nil
}

func main() {
	cfg := config.Load(ServiceName)

	opts, err := parseFlags(os.Args[1:], cfg.ProcessOptions())
	if err != nil {
		cfg.Log.Fatal("Invalid arguments", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rows, err := readRows(opts.in, cfg.CSVColumns())
	if err != nil {
		cfg.Log.Fatal("Failed to read input", "file", opts.in, "error", err)
	}
	cfg.Log.Info("Input loaded", "file", opts.in, "rows", len(rows))

	if opts.publish {
		if err := publish(ctx, cfg, opts, rows); err != nil {
			cfg.Log.Fatal("Failed to publish batch", "error", err)
		}
		return
	}

	start := time.Now()
	result, err := service.NewPipelineFromConfig(cfg).Process(ctx, rows, opts.process)
	if err != nil {
		cfg.Log.Fatal("Processing interrupted", "error", err)
	}

	logSummary(cfg.Log, result, time.Since(start))

	if opts.out != "" {
		if err := writeListings(opts.out, result.CleanedRows); err != nil {
			cfg.Log.Fatal("Failed to write output", "file", opts.out, "error", err)
		}
		cfg.Log.Info("Cleaned rows written", "file", opts.out, "rows", len(result.CleanedRows))
	}
}

func readRows(path string, cols config.Columns) ([]model.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ingest.NewReader(cols).Read(f)
}

func writeListings(path string, listings []model.Listing) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return ingest.WriteListings(f, listings)
}

func publish(ctx context.Context, cfg *config.Config, opts options, rows []model.Row) error {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		return err
	}

	producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.RawListingsTopic, kafkaCfg.DLQTopic, cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	process := opts.process
	eventID, err := events.SubmitBatch(ctx, producer, &model.BatchRequest{
		Source:  opts.source,
		Rows:    rows,
		Options: &process,
	})
	if err != nil {
		return err
	}

	cfg.Log.Info("Batch submitted",
		"event_id", eventID,
		"topic", producer.Topic(),
		"source", opts.source,
		"rows", len(rows),
	)
	return nil
}

func logSummary(log *logger.Logger, result *model.ProcessResult, elapsed time.Duration) {
	d := result.Diagnostics

	log.Info("Processing complete",
		"total_rows", d.TotalRows,
		"cleaned_rows", d.CleanedRows,
		"total_removed", d.TotalRemoved,
		"duration_ms", elapsed.Milliseconds(),
	)
	log.Info("Duplicates",
		"exact_url_groups", d.ExactURLGroups,
		"exact_url_dropped", d.ExactURLDropped,
		"fuzzy_title_groups", d.FuzzyTitleGroups,
		"fuzzy_title_dropped", d.FuzzyTitleDropped,
		"duplicates_removed", d.DuplicatesRemoved,
	)
	log.Info("Data quality",
		"empty_titles", d.EmptyTitles,
		"short_titles", d.ShortTitles,
		"long_titles", d.LongTitles,
		"empty_urls", d.EmptyURLs,
		"non_http_urls", d.NonHTTPURLs,
		"unresolved_end_dates", d.UnresolvedEndDates,
	)
	log.Info("Link protocols",
		"https", d.HTTPSURLs,
		"http", d.HTTPURLs,
		"other", d.OtherURLs,
	)
	for _, dc := range d.TopDomains(topDomains) {
		log.Info("Top domain", "domain", dc.Domain, "rows", dc.Count)
	}
	if d.LiveChecksPerformed > 0 || d.LiveSkipped > 0 {
		log.Info("Live link checks",
			"performed", d.LiveChecksPerformed,
			"unreachable", d.LiveUnreachable,
			"skipped", d.LiveSkipped,
			"dropped", d.LiveDropped,
		)
	}
	for _, g := range result.Groups {
		log.Debug("Duplicate group",
			"kind", g.Kind,
			"key", g.Key,
			"sheet_rows", sheetRows(g.Members),
		)
	}
	for _, u := range result.Unreachable {
		log.Debug("Unreachable link",
			"url", u.URL,
			"status", u.StatusCode,
			"error", u.Error,
			"sheet_rows", sheetRows(u.Rows),
		)
	}
}

func sheetRows(rowIndexes []int) []int {
	out := make([]int, len(rowIndexes))
	for i, idx := range rowIndexes {
		out[i] = ingest.SheetRow(idx)
	}
	return out
}
