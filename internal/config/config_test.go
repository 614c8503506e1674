package config

import (
	"os"
	"testing"
	"time"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t, "QDRANT_COLLECTION", "LISTEN_ADDR", "EMBEDDING_DIMENSIONS", "BATCH_SIZE", "ANALYZER_PROVIDER", "LOKI_URL")
	cfg := Load()

	if cfg.QdrantCollection != "ingestor_chunks" {
		t.Errorf("QdrantCollection default = %q", cfg.QdrantCollection)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr default = %q", cfg.ListenAddr)
	}
	if cfg.EmbeddingDimensions != 1536 {
		t.Errorf("EmbeddingDimensions default = %d", cfg.EmbeddingDimensions)
	}
	if cfg.BatchSize != 100 {
		t.Errorf("BatchSize default = %d", cfg.BatchSize)
	}
	if cfg.AnalyzerProvider != "openai" {
		t.Errorf("AnalyzerProvider default = %q", cfg.AnalyzerProvider)
	}
	if cfg.LokiURL != "" {
		t.Errorf("LokiURL should default empty, got %q", cfg.LokiURL)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t, "QDRANT_COLLECTION", "WORKER_POOL_SIZE", "LOKI_URL")
	os.Setenv("QDRANT_COLLECTION", "custom_chunks")
	os.Setenv("WORKER_POOL_SIZE", "7")
	os.Setenv("LOKI_URL", "http://loki.internal:3100")

	cfg := Load()
	if cfg.QdrantCollection != "custom_chunks" {
		t.Errorf("QdrantCollection override not applied: %q", cfg.QdrantCollection)
	}
	if cfg.WorkerPoolSize != 7 {
		t.Errorf("WorkerPoolSize override not applied: %d", cfg.WorkerPoolSize)
	}
	if cfg.LokiURL != "http://loki.internal:3100" {
		t.Errorf("LokiURL override not applied: %q", cfg.LokiURL)
	}
}

func TestGetEnvMillisConvertsToDuration(t *testing.T) {
	clearEnv(t, "SOME_MS_KEY")
	os.Setenv("SOME_MS_KEY", "1500")
	got := getEnvMillis("SOME_MS_KEY", 0)
	if got != 1500*time.Millisecond {
		t.Errorf("getEnvMillis = %v, want 1500ms", got)
	}
}

func TestGetEnvBoolParsesOrFallsBack(t *testing.T) {
	clearEnv(t, "SOME_BOOL_KEY")
	if got := getEnvBool("SOME_BOOL_KEY", true); !got {
		t.Error("expected default true when unset")
	}
	os.Setenv("SOME_BOOL_KEY", "false")
	if got := getEnvBool("SOME_BOOL_KEY", true); got {
		t.Error("expected env override to false")
	}
}

func TestWorkerPoolDefaultCapsAtTen(t *testing.T) {
	clearEnv(t, "WORKER_POOL_SIZE")
	n := workerPoolDefault()
	if n < 1 || n > 10 {
		t.Fatalf("workerPoolDefault() = %d, want in [1,10]", n)
	}
}
