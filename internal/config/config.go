// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultDBURL             = "sqlite:///atas.db"
	DefaultLogLevel          = "INFO"
	DefaultJWTTTL            = 24 * time.Hour
	DefaultWorkerCount       = 1
	DefaultWorkerPoll        = time.Second
	DefaultBackfillInterval  = 10 * time.Minute
	DefaultBackfillBatch     = 500
	DefaultSearchLimit       = 10
	MaxSearchLimit           = 50
	DefaultMaxDistance       = 2.0
	DefaultRateLimitRPS      = 20.0
	DefaultRateLimitBurst    = 40
	DefaultEmbeddingTimeout  = 30 * time.Second
	DefaultEmbeddingRPS      = 5.0
	DefaultBreakerFailures   = 5
	DefaultEmbeddingCache    = 512
	DefaultOpenAIModel       = "text-embedding-3-small"
	DefaultOpenAIDimension   = 1536
	DefaultGeminiModel       = "text-embedding-004"
	DefaultGeminiDimension   = 768
	developmentJWTSecretHint = "change-me"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EmbeddingProvider names a supported embedding backend.
type EmbeddingProvider string

// EmbeddingProvider values.
const (
	ProviderNone   EmbeddingProvider = "none"
	ProviderOpenAI EmbeddingProvider = "openai"
	ProviderGemini EmbeddingProvider = "gemini"
)

// ParseEmbeddingProvider maps a configuration string onto a provider.
// Unknown values disable embeddings.
func ParseEmbeddingProvider(s string) EmbeddingProvider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ProviderOpenAI
	case "gemini", "google":
		return ProviderGemini
	default:
		return ProviderNone
	}
}

// Embedding configures the embedding provider and its guards.
type Embedding struct {
	provider        EmbeddingProvider
	model           string
	dimension       int
	apiKey          string
	baseURL         string
	timeout         time.Duration
	rps             float64
	breakerFailures int
	cacheSize       int
}

// NewEmbedding returns an Embedding with embeddings disabled.
func NewEmbedding() Embedding {
	return Embedding{
		provider:        ProviderNone,
		timeout:         DefaultEmbeddingTimeout,
		rps:             DefaultEmbeddingRPS,
		breakerFailures: DefaultBreakerFailures,
		cacheSize:       DefaultEmbeddingCache,
	}
}

// Provider returns the configured provider.
func (e Embedding) Provider() EmbeddingProvider { return e.provider }

// Model returns the model id, falling back to the provider default.
func (e Embedding) Model() string {
	if e.model != "" {
		return e.model
	}
	switch e.provider {
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGemini:
		return DefaultGeminiModel
	}
	return ""
}

// Dimension returns the vector width, falling back to the provider default.
func (e Embedding) Dimension() int {
	if e.dimension > 0 {
		return e.dimension
	}
	switch e.provider {
	case ProviderGemini:
		return DefaultGeminiDimension
	default:
		return DefaultOpenAIDimension
	}
}

// APIKey returns the provider credential.
func (e Embedding) APIKey() string { return e.apiKey }

// BaseURL returns the provider base URL override.
func (e Embedding) BaseURL() string { return e.baseURL }

// Timeout returns the per-request timeout.
func (e Embedding) Timeout() time.Duration { return e.timeout }

// RPS returns the provider call rate limit.
func (e Embedding) RPS() float64 { return e.rps }

// BreakerFailures returns the consecutive failures that open the breaker.
func (e Embedding) BreakerFailures() int { return e.breakerFailures }

// CacheSize returns the query embedding cache capacity.
func (e Embedding) CacheSize() int { return e.cacheSize }

// Enabled reports whether a provider with credentials is configured.
func (e Embedding) Enabled() bool {
	return e.provider != ProviderNone && e.apiKey != ""
}

// EmbeddingOption configures an Embedding.
type EmbeddingOption func(*Embedding)

// WithProvider sets the provider.
func WithProvider(p EmbeddingProvider) EmbeddingOption {
	return func(e *Embedding) { e.provider = p }
}

// WithModel sets the model id.
func WithModel(model string) EmbeddingOption {
	return func(e *Embedding) { e.model = model }
}

// WithDimension sets the vector width.
func WithDimension(dim int) EmbeddingOption {
	return func(e *Embedding) { e.dimension = dim }
}

// WithAPIKey sets the provider credential.
func WithAPIKey(key string) EmbeddingOption {
	return func(e *Embedding) { e.apiKey = key }
}

// WithBaseURL sets the provider base URL.
func WithBaseURL(url string) EmbeddingOption {
	return func(e *Embedding) { e.baseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) EmbeddingOption {
	return func(e *Embedding) { e.timeout = d }
}

// WithRPS sets the provider call rate.
func WithRPS(rps float64) EmbeddingOption {
	return func(e *Embedding) { e.rps = rps }
}

// WithBreakerFailures sets the breaker threshold.
func WithBreakerFailures(n int) EmbeddingOption {
	return func(e *Embedding) { e.breakerFailures = n }
}

// WithCacheSize sets the query cache capacity.
func WithCacheSize(n int) EmbeddingOption {
	return func(e *Embedding) { e.cacheSize = n }
}

// NewEmbeddingWithOptions creates an Embedding from options.
func NewEmbeddingWithOptions(opts ...EmbeddingOption) Embedding {
	e := NewEmbedding()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the runtime configuration shared by both binaries.
type AppConfig struct {
	host           string
	port           int
	dbURL          string
	logLevel       string
	logFormat      LogFormat
	jwtSecret      string
	jwtTTL         time.Duration
	corsOrigins    []string
	rateLimitRPS   float64
	rateLimitBurst int
	workerCount    int
	workerPoll     time.Duration
	backfillEvery  time.Duration
	searchLimit    int
	maxDistance    float64
	embedding      Embedding
}

// NewAppConfig creates an AppConfig with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:           DefaultHost,
		port:           DefaultPort,
		dbURL:          DefaultDBURL,
		logLevel:       DefaultLogLevel,
		logFormat:      LogFormatPretty,
		jwtSecret:      developmentJWTSecretHint,
		jwtTTL:         DefaultJWTTTL,
		corsOrigins:    []string{"*"},
		rateLimitRPS:   DefaultRateLimitRPS,
		rateLimitBurst: DefaultRateLimitBurst,
		workerCount:    DefaultWorkerCount,
		workerPoll:     DefaultWorkerPoll,
		backfillEvery:  DefaultBackfillInterval,
		searchLimit:    DefaultSearchLimit,
		maxDistance:    DefaultMaxDistance,
		embedding:      NewEmbedding(),
	}
}

// Host returns the bind host.
func (c AppConfig) Host() string { return c.host }

// Port returns the bind port.
func (c AppConfig) Port() int { return c.port }

// Addr returns host:port.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DBURL returns the database URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// JWTSecret returns the token signing secret.
func (c AppConfig) JWTSecret() string { return c.jwtSecret }

// JWTTTL returns the token lifetime.
func (c AppConfig) JWTTTL() time.Duration { return c.jwtTTL }

// InsecureJWTSecret reports whether the built-in development secret is in use.
func (c AppConfig) InsecureJWTSecret() bool { return c.jwtSecret == developmentJWTSecretHint }

// CORSOrigins returns the allowed CORS origins.
func (c AppConfig) CORSOrigins() []string {
	out := make([]string, len(c.corsOrigins))
	copy(out, c.corsOrigins)
	return out
}

// RateLimitRPS returns the per-client request rate.
func (c AppConfig) RateLimitRPS() float64 { return c.rateLimitRPS }

// RateLimitBurst returns the per-client burst.
func (c AppConfig) RateLimitBurst() int { return c.rateLimitBurst }

// WorkerCount returns the number of queue workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// WorkerPoll returns the queue polling period.
func (c AppConfig) WorkerPoll() time.Duration { return c.workerPoll }

// BackfillInterval returns how often entities without vectors are
// re-queued. Zero disables the sweep.
func (c AppConfig) BackfillInterval() time.Duration { return c.backfillEvery }

// SearchLimit returns the default top_k.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// MaxDistance returns the cosine distance cut-off for semantic matches.
func (c AppConfig) MaxDistance() float64 { return c.maxDistance }

// Embedding returns the embedding configuration.
func (c AppConfig) Embedding() Embedding { return c.embedding }

// AppConfigOption configures an AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithJWTSecret sets the token signing secret.
func WithJWTSecret(secret string) AppConfigOption {
	return func(c *AppConfig) { c.jwtSecret = secret }
}

// WithJWTTTL sets the token lifetime.
func WithJWTTTL(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.jwtTTL = d }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) { c.corsOrigins = origins }
}

// WithRateLimit sets the per-client request rate and burst.
func WithRateLimit(rps float64, burst int) AppConfigOption {
	return func(c *AppConfig) {
		c.rateLimitRPS = rps
		c.rateLimitBurst = burst
	}
}

// WithWorkerCount sets the number of queue workers.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) { c.workerCount = n }
}

// WithWorkerPoll sets the queue polling period.
func WithWorkerPoll(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.workerPoll = d }
}

// WithBackfillInterval sets the backfill sweep period; zero disables it.
func WithBackfillInterval(d time.Duration) AppConfigOption {
	return func(c *AppConfig) { c.backfillEvery = d }
}

// WithSearchLimit sets the default top_k.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) { c.searchLimit = n }
}

// WithMaxDistance sets the semantic match cut-off.
func WithMaxDistance(d float64) AppConfigOption {
	return func(c *AppConfig) { c.maxDistance = d }
}

// WithEmbedding sets the embedding configuration.
func WithEmbedding(e Embedding) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// NewAppConfigWithOptions creates an AppConfig from defaults plus options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	cfg := NewAppConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Apply returns a copy of c with opts applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs summarises the settings worth logging at startup. Secrets are
// reduced to whether they are set.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("addr", c.Addr()),
		slog.String("db_scheme", strings.SplitN(c.dbURL, ":", 2)[0]),
		slog.String("embedding_provider", string(c.embedding.Provider())),
		slog.String("embedding_model", c.embedding.Model()),
		slog.Int("embedding_dimension", c.embedding.Dimension()),
		slog.Bool("embedding_api_key_set", c.embedding.APIKey() != ""),
		slog.Int("worker_count", c.workerCount),
		slog.Duration("backfill_interval", c.backfillEvery),
		slog.Float64("search_max_distance", c.maxDistance),
		slog.Bool("insecure_jwt_secret", c.InsecureJWTSecret()),
	}
}
