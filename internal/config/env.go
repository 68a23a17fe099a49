package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use an underscore delimiter (e.g., EMBEDDING_API_KEY).
type EnvConfig struct {
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DBURL is the database connection URL.
	// Env: DB_URL (default: sqlite:///atas.db)
	DBURL string `envconfig:"DB_URL" default:"sqlite:///atas.db"`

	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// JWTSecret signs access tokens.
	// Env: JWT_SECRET
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Env: JWT_TTL_MINUTES (default: 1440)
	JWTTTLMinutes int `envconfig:"JWT_TTL_MINUTES" default:"1440"`

	// CORSOrigins is a comma-separated list of allowed origins.
	// Env: CORS_ORIGINS (default: *)
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Env: RATE_LIMIT_RPS (default: 20)
	RateLimitRPS float64 `envconfig:"RATE_LIMIT_RPS" default:"20"`

	// Env: RATE_LIMIT_BURST (default: 40)
	RateLimitBurst int `envconfig:"RATE_LIMIT_BURST" default:"40"`

	// WorkerCount is the number of background queue workers.
	// Env: WORKER_COUNT (default: 1)
	WorkerCount int `envconfig:"WORKER_COUNT" default:"1"`

	// Env: WORKER_POLL_MS (default: 1000)
	WorkerPollMS int `envconfig:"WORKER_POLL_MS" default:"1000"`

	// BackfillIntervalSeconds is how often entities without vectors are
	// re-queued; 0 disables the sweep.
	// Env: BACKFILL_INTERVAL_SECONDS (default: 600)
	BackfillIntervalSeconds int `envconfig:"BACKFILL_INTERVAL_SECONDS" default:"600"`

	// SearchLimit is the default semantic search top_k.
	// Env: SEARCH_LIMIT (default: 10)
	SearchLimit int `envconfig:"SEARCH_LIMIT" default:"10"`

	// SearchMaxDistance drops semantic matches at or beyond this cosine distance.
	// Env: SEARCH_MAX_DISTANCE (default: 2.0)
	SearchMaxDistance float64 `envconfig:"SEARCH_MAX_DISTANCE" default:"2.0"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`
}

// EmbeddingEnv holds environment configuration for the embedding provider.
type EmbeddingEnv struct {
	// Env: EMBEDDING_PROVIDER (openai, gemini, none; default: none)
	Provider string `envconfig:"PROVIDER" default:"none"`

	// Env: EMBEDDING_MODEL
	Model string `envconfig:"MODEL"`

	// Dimension overrides the provider's default vector width.
	// Env: EMBEDDING_DIMENSION
	Dimension int `envconfig:"DIMENSION"`

	// Env: EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// Env: EMBEDDING_RPS (default: 5)
	RPS float64 `envconfig:"RPS" default:"5"`

	// Env: EMBEDDING_BREAKER_FAILURES (default: 5)
	BreakerFailures int `envconfig:"BREAKER_FAILURES" default:"5"`

	// Env: EMBEDDING_CACHE_SIZE (default: 512)
	CacheSize int `envconfig:"CACHE_SIZE" default:"512"`
}

// LoadFromEnv loads configuration from unprefixed environment variables.
func LoadFromEnv() (EnvConfig, error) {
	return LoadFromEnvWithPrefix("")
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "COMM" would require COMM_DB_URL instead of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	opts := []AppConfigOption{
		WithLogFormat(parseLogFormat(e.LogFormat)),
		WithEmbedding(e.Embedding.ToEmbedding()),
		WithCORSOrigins(parseList(e.CORSOrigins)),
	}
	if e.Host != "" {
		opts = append(opts, WithHost(e.Host))
	}
	if e.Port != 0 {
		opts = append(opts, WithPort(e.Port))
	}
	if e.DBURL != "" {
		opts = append(opts, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		opts = append(opts, WithLogLevel(e.LogLevel))
	}
	if e.JWTSecret != "" {
		opts = append(opts, WithJWTSecret(e.JWTSecret))
	}
	if e.JWTTTLMinutes > 0 {
		opts = append(opts, WithJWTTTL(time.Duration(e.JWTTTLMinutes)*time.Minute))
	}
	if e.RateLimitRPS > 0 && e.RateLimitBurst > 0 {
		opts = append(opts, WithRateLimit(e.RateLimitRPS, e.RateLimitBurst))
	}
	if e.WorkerCount > 0 {
		opts = append(opts, WithWorkerCount(e.WorkerCount))
	}
	if e.WorkerPollMS > 0 {
		opts = append(opts, WithWorkerPoll(time.Duration(e.WorkerPollMS)*time.Millisecond))
	}
	if e.BackfillIntervalSeconds >= 0 {
		opts = append(opts, WithBackfillInterval(time.Duration(e.BackfillIntervalSeconds)*time.Second))
	}
	if e.SearchLimit > 0 {
		opts = append(opts, WithSearchLimit(min(e.SearchLimit, MaxSearchLimit)))
	}
	if e.SearchMaxDistance > 0 {
		opts = append(opts, WithMaxDistance(e.SearchMaxDistance))
	}
	return NewAppConfigWithOptions(opts...)
}

// ToEmbedding converts EmbeddingEnv to Embedding.
func (e EmbeddingEnv) ToEmbedding() Embedding {
	opts := []EmbeddingOption{
		WithProvider(ParseEmbeddingProvider(e.Provider)),
		WithModel(e.Model),
		WithAPIKey(e.APIKey),
		WithBaseURL(e.BaseURL),
	}
	if e.Dimension > 0 {
		opts = append(opts, WithDimension(e.Dimension))
	}
	if e.Timeout > 0 {
		opts = append(opts, WithTimeout(time.Duration(e.Timeout*float64(time.Second))))
	}
	if e.RPS > 0 {
		opts = append(opts, WithRPS(e.RPS))
	}
	if e.BreakerFailures > 0 {
		opts = append(opts, WithBreakerFailures(e.BreakerFailures))
	}
	if e.CacheSize > 0 {
		opts = append(opts, WithCacheSize(e.CacheSize))
	}
	return NewEmbeddingWithOptions(opts...)
}

func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
