package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sweeps/pkg/client"
	"sweeps/pkg/logger"
	"sweeps/pkg/model"
	"sweeps/pkg/sanitizer"

	"github.com/joho/godotenv"
)

var credentialRegex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	IdempotencyTTL    time.Duration
	SignatureSecret   string

	RequestTimeout time.Duration
	MaxRequestSize int
	MaxBatchRows   int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Timezone string
	Location *time.Location

	EnableFuzzyDedup        bool
	EnableExactURLDedup     bool
	EnableLiveURLValidation bool
	MaxLiveChecks           int
	LiveCheckTimeout        time.Duration
	LiveCheckRate           float64
	LiveCheckConcurrency    int

	RulesFile string
	Rules     *Rules

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment (after an optional .env file) and exits the
// process when the result does not validate.
func Load(serviceName string) *Config {
	cfg, err := New(serviceName)
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// New is Load without the exit. The returned Config always carries a usable
// logger, even when err is non-nil.
func New(serviceName string) (*Config, error) {
	loadDotEnv(getEnvStr(EnvDotEnvFile, DefaultDotEnvFile))

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		IdempotencyTTL:    getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		SignatureSecret:   getEnvStr(EnvSignatureSecret, ""),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),
		MaxBatchRows:   getEnvNum(EnvMaxBatchRows, DefaultMaxBatchRows),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Timezone: getEnvStr(EnvTimezone, DefaultTimezone),

		EnableFuzzyDedup:        getEnvBool(EnvEnableFuzzyDedup, DefaultEnableFuzzyDedup),
		EnableExactURLDedup:     getEnvBool(EnvEnableExactURLDedup, DefaultEnableExactURLDedup),
		EnableLiveURLValidation: getEnvBool(EnvEnableLiveURLValidation, DefaultEnableLiveURLValidation),
		MaxLiveChecks:           getEnvNum(EnvMaxLiveChecks, DefaultMaxLiveChecks),
		LiveCheckTimeout:        getEnvDuration(EnvLiveCheckTimeout, DefaultLiveCheckTimeout),
		LiveCheckRate:           getEnvFloat(EnvLiveCheckRate, DefaultLiveCheckRate),
		LiveCheckConcurrency:    getEnvNum(EnvLiveCheckConcurrency, DefaultLiveCheckConcurrency),

		RulesFile: getEnvStr(EnvRulesFile, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadDotEnv(path string) {
	if path == "" {
		return
	}
	// Variables already present in the environment win over the file.
	_ = godotenv.Load(path)
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// Validate checks every field and loads the derived ones (Location, Rules).
// All problems are reported together.
func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}

	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}
	if cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive, got: %s", cfg.RateLimitWindow))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxBatchRows <= 0 {
		errors = append(errors, fmt.Sprintf("MaxBatchRows must be positive, got: %d", cfg.MaxBatchRows))
	}

	if loc, err := time.LoadLocation(cfg.Timezone); err != nil || cfg.Timezone == "" || strings.EqualFold(cfg.Timezone, "Local") {
		errors = append(errors, fmt.Sprintf("Timezone must be a valid IANA zone name, got: %q", cfg.Timezone))
	} else {
		cfg.Location = loc
	}

	if cfg.MaxLiveChecks < 0 {
		errors = append(errors, fmt.Sprintf("MaxLiveChecks cannot be negative, got: %d", cfg.MaxLiveChecks))
	}
	if cfg.LiveCheckTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("LiveCheckTimeout must be positive, got: %s", cfg.LiveCheckTimeout))
	}
	if cfg.LiveCheckRate < 0 {
		errors = append(errors, fmt.Sprintf("LiveCheckRate cannot be negative, got: %g", cfg.LiveCheckRate))
	}
	if cfg.LiveCheckConcurrency <= 0 {
		errors = append(errors, fmt.Sprintf("LiveCheckConcurrency must be positive, got: %d", cfg.LiveCheckConcurrency))
	}

	cfg.Rules = &Rules{}
	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			errors = append(errors, fmt.Sprintf("RulesFile could not be loaded: %v", err))
		} else {
			cfg.Rules = rules
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"signature_verification", cfg.SignatureSecret != "",
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"max_batch_rows", cfg.MaxBatchRows,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"timezone", cfg.Timezone,
		"enable_fuzzy_dedup", cfg.EnableFuzzyDedup,
		"enable_exact_url_dedup", cfg.EnableExactURLDedup,
		"enable_live_url_validation", cfg.EnableLiveURLValidation,
		"max_live_checks", cfg.MaxLiveChecks,
		"live_check_timeout", cfg.LiveCheckTimeout,
		"live_check_rate", cfg.LiveCheckRate,
		"live_check_concurrency", cfg.LiveCheckConcurrency,
		"rules_file", cfg.RulesFile,
		"stop_words", len(cfg.StopWords()),
		"tracking_params", len(cfg.TrackingParams()),
	)
}

// ProcessOptions are the batch defaults a request may override.
func (cfg *Config) ProcessOptions() model.ProcessOptions {
	return model.ProcessOptions{
		EnableFuzzyDuplicateDetection:    cfg.EnableFuzzyDedup,
		EnableExactURLDuplicateDetection: cfg.EnableExactURLDedup,
		EnableLiveURLValidation:          cfg.EnableLiveURLValidation,
		MaxLiveChecks:                    cfg.MaxLiveChecks,
		LiveCheckTimeoutMs:               cfg.LiveCheckTimeout.Milliseconds(),
	}
}

func (cfg *Config) StopWords() []string {
	if cfg.Rules != nil && len(cfg.Rules.StopWords) > 0 {
		return cfg.Rules.StopWords
	}
	return sanitizer.DefaultStopWords()
}

func (cfg *Config) TrackingParams() []string {
	if cfg.Rules != nil && len(cfg.Rules.TrackingParams) > 0 {
		return cfg.Rules.TrackingParams
	}
	return sanitizer.DefaultTrackingParams()
}

// CSVColumns are the header names from the rules file. Blank names mean the
// reader's defaults.
func (cfg *Config) CSVColumns() Columns {
	if cfg.Rules == nil {
		return Columns{}
	}
	return cfg.Rules.Columns
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func redactMongoURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = MinPaginationLimit
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
