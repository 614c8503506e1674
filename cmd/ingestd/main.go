// Command ingestd is the composition root: it wires config, logging, the
// database pool, job queue, orchestrator, cleanup service and stream
// service together behind a thin gin HTTP surface (job submission, the SSE
// stream, /healthz and /metrics) — not a full validated REST API, per
// spec.md's scoping of the HTTP surface as an external collaborator.
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/analyze"
	anthropicprovider "github.com/autollama/ingestor/internal/analyze/provider/anthropic"
	openaianalyzer "github.com/autollama/ingestor/internal/analyze/provider/openai"
	"github.com/autollama/ingestor/internal/blob"
	"github.com/autollama/ingestor/internal/cleanup"
	"github.com/autollama/ingestor/internal/config"
	"github.com/autollama/ingestor/internal/embed"
	embedcache "github.com/autollama/ingestor/internal/embed/cache"
	openaiembed "github.com/autollama/ingestor/internal/embed/provider/openai"
	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/extract/parser/csvdoc"
	"github.com/autollama/ingestor/internal/extract/parser/docx"
	"github.com/autollama/ingestor/internal/extract/parser/epub"
	"github.com/autollama/ingestor/internal/extract/parser/html"
	"github.com/autollama/ingestor/internal/extract/parser/markdown"
	"github.com/autollama/ingestor/internal/extract/parser/pdf"
	"github.com/autollama/ingestor/internal/logging"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/orchestrator"
	"github.com/autollama/ingestor/internal/queue"
	"github.com/autollama/ingestor/internal/session"
	"github.com/autollama/ingestor/internal/store"
	"github.com/autollama/ingestor/internal/store/relational"
	"github.com/autollama/ingestor/internal/store/vector"
	"github.com/autollama/ingestor/internal/stream"
	"github.com/autollama/ingestor/internal/telemetry/metrics"
	"github.com/autollama/ingestor/internal/telemetry/tracing"
)

func main() {
	cfg := config.Load()
	log := logging.MustNew("production", cfg.LokiURL)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "ingestd", cfg.OTelEndpoint)
	if err != nil {
		log.Fatal("tracing setup failed", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()
	relStore := relational.New(pool)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
	}

	qc, err := qdrant.NewClient(&qdrant.Config{Host: cfg.QdrantURL, Port: 6334, APIKey: cfg.QdrantAPIKey})
	if err != nil {
		log.Fatal("qdrant connect failed", zap.Error(err))
	}
	vecStore := vector.New(qc, cfg.QdrantCollection)

	blobStore, err := blob.NewMinIOStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatal("minio connect failed", zap.Error(err))
	}

	extractor := buildExtractor()

	analyzer := buildAnalyzer(cfg)

	rawEmbedder := openaiembed.New(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions, cfg.BatchSize)
	var embedder embed.Embedder = embedcache.New(rawEmbedder, redisClient, cfg.EmbeddingCacheLRUSize, cfg.EmbeddingCacheTTL, log)

	if err := vecStore.EnsureCollection(ctx, embedder.Dimensions()); err != nil {
		log.Fatal("qdrant collection setup failed", zap.Error(err))
	}

	writer := store.New(relStore, vecStore, log)
	sessions := session.New(relStore, log, cfg.ProgressUpdateInterval)
	events := stream.New(cfg.KeepAliveInterval, log)

	orch := orchestrator.New(orchestrator.Deps{
		Extractor:   extractor,
		BlobStore:   blobStore,
		Analyzer:    analyzer,
		Embedder:    embedder,
		Writer:      writer,
		Sessions:    sessions,
		Events:      events,
		Concurrency: cfg.MaxConcurrentOps,
		Log:         log,
	})

	jobQueue := queue.New(pool, log)
	scheduler := queue.NewScheduler(jobQueue, makeHandler(orch, log), cfg.WorkerPoolSize, log)
	go scheduler.Run(ctx)

	cleanupSvc := cleanup.New(relStore, pool, vecStore, cleanup.Config{
		EmergencyInterval: cfg.EmergencyInterval,
		CleanupInterval:   cfg.SessionCleanupInterval,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		SessionTimeout:    cfg.SessionTimeout,
		PressureRatio:     0.5,
		PressureRows:      100,
	}, log)
	go cleanupSvc.Run(ctx)

	router := buildRouter(jobQueue, scheduler, events, reg, log)
	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		log.Info("ingestd listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Fetch)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildExtractor() *extract.Extractor {
	registry := extract.NewRegistry()
	registry.Register(pdf.New(), "application/pdf", "pdf")
	registry.Register(docx.New(), "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx")
	registry.Register(epub.New(), "application/epub+zip", "epub")
	registry.Register(html.New(""), "text/html", "html", "htm")
	registry.Register(markdown.New(), "text/markdown", "md", "markdown")
	registry.Register(csvdoc.New(), "text/csv", "csv")
	registry.Register(markdown.NewText(), "text/plain", "txt", "text")
	fetcher := extract.NewFetcher(30 * time.Second)
	return extract.New(registry, fetcher)
}

func buildAnalyzer(cfg config.Config) analyze.Analyzer {
	switch cfg.AnalyzerProvider {
	case "anthropic":
		return anthropicprovider.New(cfg.AnthropicAPIKey, cfg.AnalyzerModel)
	default:
		return openaianalyzer.New(cfg.OpenAIAPIKey, cfg.AnalyzerModel)
	}
}

// makeHandler adapts the orchestrator into a queue.Handler, decoding each
// job's opaque payload first and folding the queue's per-job cancel flag
// into the orchestrator's own cancellation poll.
func makeHandler(orch *orchestrator.Orchestrator, log *zap.Logger) queue.Handler {
	return func(ctx context.Context, job model.Job, jobCancelled func() bool) (model.JobResult, error) {
		payload, err := queue.DecodePayload(job.Payload)
		if err != nil {
			return model.JobResult{}, err
		}
		cancelled := func() bool { return ctx.Err() != nil || jobCancelled() }
		return orch.Run(ctx, payload, cancelled)
	}
}

func buildRouter(q *queue.Queue, sched *queue.Scheduler, events *stream.Service, reg *prometheus.Registry, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.POST("/jobs", func(c *gin.Context) {
		var payload model.JobPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		raw, err := queue.EncodePayload(payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		jobID, err := q.Enqueue(c.Request.Context(), payload.JobType, 0, raw, 3)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		sched.Notify()
		c.JSON(http.StatusAccepted, gin.H{"job_id": jobID})
	})

	r.POST("/jobs/:id/cancel", func(c *gin.Context) {
		if err := q.Cancel(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusAccepted)
	})

	r.GET("/stream", func(c *gin.Context) {
		for k, v := range stream.Headers {
			c.Header(k, v)
		}
		clientID := c.Query("client_id")
		if clientID == "" {
			clientID = c.Request.RemoteAddr
		}
		sessionID := c.Query("session_id")

		c.Status(http.StatusOK)
		w := ginFlushWriter{c: c}
		unsubscribe := events.Subscribe(clientID, sessionID, w)
		defer unsubscribe()

		<-c.Request.Context().Done()
	})

	return r
}

// ginFlushWriter adapts *gin.Context to stream.Writer.
type ginFlushWriter struct {
	c *gin.Context
}

func (w ginFlushWriter) Write(p []byte) (int, error) {
	return w.c.Writer.Write(p)
}

func (w ginFlushWriter) Flush() {
	w.c.Writer.Flush()
}
