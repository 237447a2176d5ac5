package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "sweeps"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute
	DefaultIdempotencyTTL    = 24 * time.Hour

	DefaultRequestTimeout = 2 * time.Minute
	DefaultMaxRequestSize = 10 * 1024 * 1024 // 10MB
	DefaultMaxBatchRows   = 50000

	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 3 * time.Minute
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTimezone                = "America/Los_Angeles"
	DefaultEnableFuzzyDedup        = false
	DefaultEnableExactURLDedup     = true
	DefaultEnableLiveURLValidation = false
	DefaultMaxLiveChecks           = 50
	DefaultLiveCheckTimeout        = 10 * time.Second
	DefaultLiveCheckRate           = 5.0
	DefaultLiveCheckConcurrency    = 8
	DefaultDotEnvFile              = ".env"

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10
)
