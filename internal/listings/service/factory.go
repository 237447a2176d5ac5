package service

import (
	"sweeps/pkg/config"
	"sweeps/pkg/reachability"
	"sweeps/pkg/sanitizer"

	"golang.org/x/time/rate"
)

// NewPipelineFromConfig wires the pipeline with the configured zone, rules
// and a rate-limited HTTP checker.
func NewPipelineFromConfig(cfg *config.Config) *Pipeline {
	opts := []reachability.Option{
		reachability.WithMaxRedirects(reachability.DefaultMaxRedirects),
	}
	if cfg.LiveCheckRate > 0 {
		burst := max(1, cfg.LiveCheckConcurrency)
		opts = append(opts, reachability.WithLimiter(rate.NewLimiter(rate.Limit(cfg.LiveCheckRate), burst)))
	}

	return NewPipeline(
		sanitizer.NewDateResolver(cfg.Location),
		sanitizer.NewURLCanonicalizer(cfg.TrackingParams()),
		sanitizer.NewSignatureGenerator(cfg.StopWords()),
		reachability.NewHTTPChecker(opts...),
		cfg.LiveCheckConcurrency,
		cfg.Log,
	)
}
