package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvIdempotencyTTL    = "IDEMPOTENCY_TTL"
	EnvSignatureSecret   = "SIGNATURE_SECRET"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"
	EnvMaxBatchRows   = "MAX_BATCH_ROWS"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvTimezone                = "TIMEZONE"
	EnvEnableFuzzyDedup        = "ENABLE_FUZZY_DEDUP"
	EnvEnableExactURLDedup     = "ENABLE_EXACT_URL_DEDUP"
	EnvEnableLiveURLValidation = "ENABLE_LIVE_URL_VALIDATION"
	EnvMaxLiveChecks           = "MAX_LIVE_CHECKS"
	EnvLiveCheckTimeout        = "LIVE_CHECK_TIMEOUT"
	EnvLiveCheckRate           = "LIVE_CHECK_RATE"
	EnvLiveCheckConcurrency    = "LIVE_CHECK_CONCURRENCY"
	EnvRulesFile               = "RULES_FILE"
	EnvDotEnvFile              = "DOTENV_FILE"
)
