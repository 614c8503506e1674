// Package config reads the environment variables recognized by the
// ingestion pipeline (spec.md §6.5). It follows the teacher's own
// getEnv-with-default convention (see legal-gateway/worker.go,
// go-enhanced-rag-service/main.go) rather than a config-file/flag library
// the teacher never reaches for.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the fully-resolved, immutable configuration threaded through
// every constructor (Design Note 9: explicit config struct, no globals).
type Config struct {
	DatabaseURL string
	QdrantURL   string
	QdrantAPIKey string

	OpenAIAPIKey    string
	AnthropicAPIKey string

	// AnalyzerProvider selects which analyzer provider package cmd/ingestd
	// constructs: "anthropic", or "openai" for any other value. The embedder
	// is always the OpenAI provider; there is no setting for it.
	AnalyzerProvider string
	AnalyzerModel    string
	EmbeddingModel   string

	QdrantCollection string

	RedisURL              string
	EmbeddingCacheTTL     time.Duration
	EmbeddingCacheLRUSize int

	OTelEndpoint string
	LokiURL      string
	ListenAddr   string
	KeepAliveInterval time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	SessionCleanupInterval time.Duration
	EmergencyInterval      time.Duration
	SessionTimeout         time.Duration
	HeartbeatTimeout       time.Duration

	EmbeddingDimensions int
	BatchSize           int
	MaxConcurrentOps    int

	EnableContextualEmbeddingsDefault bool

	ProgressUpdateInterval time.Duration

	WorkerPoolSize int

	Timeouts Timeouts
}

// Timeouts holds the per-outbound-call deadlines from spec.md §5.
type Timeouts struct {
	Fetch    time.Duration // C1
	Analyze  time.Duration // C3
	Embed    time.Duration // C4
}

// Load resolves Config from the process environment, applying the spec's
// documented defaults for anything unset.
func Load() Config {
	c := Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		QdrantURL:       os.Getenv("QDRANT_URL"),
		QdrantAPIKey:    os.Getenv("QDRANT_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		AnalyzerProvider: getEnv("ANALYZER_PROVIDER", "openai"),
		AnalyzerModel:    os.Getenv("ANALYZER_MODEL"),
		EmbeddingModel:   os.Getenv("EMBEDDING_MODEL"),

		QdrantCollection: getEnv("QDRANT_COLLECTION", "ingestor_chunks"),

		RedisURL:              os.Getenv("REDIS_URL"),
		EmbeddingCacheTTL:      getEnvMillis("EMBEDDING_CACHE_TTL", 86_400_000),
		EmbeddingCacheLRUSize:  getEnvInt("EMBEDDING_CACHE_LRU_SIZE", 10_000),

		OTelEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LokiURL:           os.Getenv("LOKI_URL"),
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		KeepAliveInterval: getEnvMillis("KEEP_ALIVE_INTERVAL", 30_000),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minio"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minio123"),
		MinioBucket:    getEnv("MINIO_BUCKET", "ingestor-uploads"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		SessionCleanupInterval: getEnvMillis("SESSION_CLEANUP_INTERVAL", 120_000),
		SessionTimeout:         getEnvMillis("SESSION_TIMEOUT", 480_000),
		HeartbeatTimeout:       getEnvMillis("HEARTBEAT_TIMEOUT", 90_000),
		EmergencyInterval:      getEnvMillis("EMERGENCY_INTERVAL", 30_000),

		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		BatchSize:           getEnvInt("BATCH_SIZE", 100),
		MaxConcurrentOps:    getEnvInt("MAX_CONCURRENT_OPERATIONS", 5),

		EnableContextualEmbeddingsDefault: getEnvBool("ENABLE_CONTEXTUAL_EMBEDDINGS", false),

		ProgressUpdateInterval: 5 * time.Second,
		WorkerPoolSize:         workerPoolDefault(),

		Timeouts: Timeouts{
			Fetch:   30 * time.Second,
			Analyze: 60 * time.Second,
			Embed:   30 * time.Second,
		},
	}
	return c
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// getEnvMillis reads an environment variable expressed in milliseconds
// (spec.md §6.5's unit for all the cleanup/timeout knobs) into a Duration.
func getEnvMillis(key string, defMillis int) time.Duration {
	ms := getEnvInt(key, defMillis)
	return time.Duration(ms) * time.Millisecond
}

func workerPoolDefault() int {
	n := getEnvInt("WORKER_POOL_SIZE", 0)
	if n > 0 {
		return n
	}
	cpu := numCPU()
	if cpu > 10 {
		return 10
	}
	if cpu < 1 {
		return 1
	}
	return cpu
}
