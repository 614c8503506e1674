// Package orchestrator implements the Pipeline Orchestrator (C10): the
// single per-job actor composing C1-C5 with bounded chunk concurrency,
// cooperative cancellation, and error-boundary classification (spec.md
// §4.10). Chunk workers push results into a bounded channel; a single
// actor goroutine drains it and commits session state, keeping session
// state single-writer per the spec's message-passing re-architecture
// (spec.md's Coroutine-control-flow redesign note).
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/analyze"
	"github.com/autollama/ingestor/internal/blob"
	"github.com/autollama/ingestor/internal/chunk"
	"github.com/autollama/ingestor/internal/embed"
	"github.com/autollama/ingestor/internal/extract"
	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/session"
	"github.com/autollama/ingestor/internal/store"
	"github.com/autollama/ingestor/internal/stream"
)

const defaultChunkConcurrency = 5

// partialFailureThreshold: a job only goes fully "failed" from per-chunk
// errors once more than this fraction of chunks failed (spec.md §4.10 4d).
const partialFailureThreshold = 0.5

// Orchestrator is the C10 contract: Run(ctx, job) -> terminal outcome.
type Orchestrator struct {
	extractor   *extract.Extractor
	blobStore   blob.Store
	chunkOpts   chunk.Options
	analyzer    analyze.Analyzer
	embedder    embed.Embedder
	writer      *store.Writer
	sessions    *session.Manager
	events      *stream.Service
	concurrency int
	log         *zap.Logger
}

type Deps struct {
	Extractor   *extract.Extractor
	BlobStore   blob.Store
	Analyzer    analyze.Analyzer
	Embedder    embed.Embedder
	Writer      *store.Writer
	Sessions    *session.Manager
	Events      *stream.Service
	Concurrency int
	Log         *zap.Logger
}

func New(d Deps) *Orchestrator {
	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = defaultChunkConcurrency
	}
	return &Orchestrator{
		extractor:   d.Extractor,
		blobStore:   d.BlobStore,
		analyzer:    d.Analyzer,
		embedder:    d.Embedder,
		writer:      d.Writer,
		sessions:    d.Sessions,
		events:      d.Events,
		concurrency: concurrency,
		log:         d.Log,
	}
}

// CancelSignal is polled at every phase boundary and before each chunk
// dispatch (spec.md §4.10/§5). cmd/ingestd backs it with the job context
// and the queue's in-memory per-job cancel flag (queue.CancelFunc).
type CancelSignal func() bool

// Run drives one job's Session from Acquire through Finalize and returns
// the job-level outcome. A nil error with FailedChunks > 0 still means the
// job itself succeeded; only Fatal/Infrastructure errors (session start,
// extract failure, empty content, a chunk failure rate over
// partialFailureThreshold) propagate to the caller (the queue's Handler),
// per spec.md §4.10's error classification.
func (o *Orchestrator) Run(ctx context.Context, payload model.JobPayload, cancelled CancelSignal) (model.JobResult, error) {
	opts := model.Options{
		ChunkSize:                  payload.Options.ChunkSize,
		ChunkOverlap:               payload.Options.ChunkOverlap,
		EnableContextualEmbeddings: payload.Options.EnableContextualEmbeddings,
		GenerateSummary:            payload.Options.GenerateSummary,
		SessionID:                  payload.Options.SessionID,
	}
	opts.Clamp()

	// Phase 1: Acquire.
	sessionID, err := o.sessions.Start(ctx, payload.URL, nil, opts.SessionID)
	if err != nil {
		return model.JobResult{}, ingesterr.New("orchestrator.Run", ingesterr.Internal, err)
	}
	o.emit(model.Event{SessionID: sessionID, Type: model.EventProcessingStarted, Timestamp: time.Now()})

	if cancelled() {
		_ = o.sessions.End(ctx, sessionID, model.SessionCancelled, "")
		return model.JobResult{SessionID: sessionID}, nil
	}

	// Phase 2: Extract.
	text, _, err := o.extractPhase(ctx, payload)
	if err != nil {
		msg := err.Error()
		_ = o.sessions.End(ctx, sessionID, model.SessionFailed, msg)
		o.emit(model.Event{SessionID: sessionID, Type: model.EventProcessingDone, Timestamp: time.Now()})
		return model.JobResult{SessionID: sessionID, ErrorMessage: msg}, err
	}

	if cancelled() {
		_ = o.sessions.End(ctx, sessionID, model.SessionCancelled, "")
		return model.JobResult{SessionID: sessionID}, nil
	}

	// Phase 3: Chunk.
	drafts := chunk.Chunk(text, chunk.Options{Size: opts.ChunkSize, Overlap: opts.ChunkOverlap})
	total := len(drafts)
	if total == 0 {
		msg := "empty content"
		_ = o.sessions.End(ctx, sessionID, model.SessionFailed, msg)
		return model.JobResult{SessionID: sessionID, ErrorMessage: msg}, ingesterr.New("orchestrator.Run", ingesterr.Validation, fmt.Errorf("empty content"))
	}
	if err := o.sessions.UpdateProgress(ctx, sessionID, 0, 0, &total, true); err != nil && o.log != nil {
		o.log.Warn("progress update failed", zap.Error(err))
	}

	// Phase 4: per-chunk pipeline, bounded concurrency.
	completed, failed := o.runChunks(ctx, sessionID, payload.URL, text, drafts, opts, cancelled)

	// Phase 5: Finalize. A failure rate over the threshold fails the whole
	// job rather than completing it "partial" (spec.md §4.10 4d); below
	// threshold, failed_chunks > 0 is still a completed session.
	status := model.SessionCompleted
	var finalMsg string
	failureRate := float64(failed) / float64(total)
	switch {
	case completed == 0:
		status = model.SessionFailed
		finalMsg = "all chunks failed"
	case failureRate > partialFailureThreshold:
		status = model.SessionFailed
		finalMsg = "chunk failure rate exceeded threshold"
	case cancelled():
		status = model.SessionCancelled
	}
	if err := o.sessions.End(ctx, sessionID, status, finalMsg); err != nil && o.log != nil {
		o.log.Warn("session finalize failed", zap.Error(err))
	}
	o.emit(model.Event{SessionID: sessionID, Type: model.EventProcessingDone, Timestamp: time.Now()})

	result := model.JobResult{
		SessionID:       sessionID,
		CompletedChunks: completed,
		FailedChunks:    failed,
		ErrorMessage:    finalMsg,
	}
	if status == model.SessionFailed {
		return result, ingesterr.New("orchestrator.Run", ingesterr.Internal, fmt.Errorf("%s", finalMsg))
	}
	return result, nil
}

func (o *Orchestrator) extractPhase(ctx context.Context, payload model.JobPayload) (string, extract.Meta, error) {
	deadline, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if payload.UploadRef != "" {
		data, contentType, err := o.blobStore.Get(deadline, payload.UploadRef)
		if err != nil {
			return "", extract.Meta{}, err
		}
		src := extract.Source{Bytes: data, DeclaredMIME: contentType}
		result, err := o.extractor.Fetch(deadline, src)
		if err != nil {
			return "", extract.Meta{}, err
		}
		return result.Text, result.Meta, nil
	}

	src := extract.Source{URL: payload.URL}
	result, err := o.extractor.Fetch(deadline, src)
	if err != nil {
		return "", extract.Meta{}, err
	}
	return result.Text, result.Meta, nil
}

// chunkOutcome is what a chunk worker reports back to the single-writer
// actor loop.
type chunkOutcome struct {
	index int
	ok    bool
	err   error
}

func (o *Orchestrator) runChunks(ctx context.Context, sessionID, url, wholeDoc string, drafts []chunk.Draft, opts model.Options, cancelled CancelSignal) (completed, failed int) {
	sem := make(chan struct{}, o.concurrency)
	results := make(chan chunkOutcome, len(drafts))
	var wg sync.WaitGroup
	var completedCount, failedCount int64

dispatch:
	for _, d := range drafts {
		if cancelled() {
			break dispatch
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		wg.Add(1)
		go func(d chunk.Draft) {
			defer wg.Done()
			defer func() { <-sem }()
			err := o.processChunk(ctx, sessionID, url, wholeDoc, d, opts)
			if err != nil {
				atomic.AddInt64(&failedCount, 1)
				results <- chunkOutcome{index: d.Index, ok: false, err: err}
				return
			}
			atomic.AddInt64(&completedCount, 1)
			results <- chunkOutcome{index: d.Index, ok: true}
		}(d)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	total := len(drafts)
	for r := range results {
		completed = int(atomic.LoadInt64(&completedCount))
		failed = int(atomic.LoadInt64(&failedCount))
		if r.ok {
			o.emit(model.Event{SessionID: sessionID, Type: model.EventChunkProcessed, Data: map[string]int{"chunk_index": r.index}, Timestamp: time.Now()})
		} else {
			o.emit(model.Event{SessionID: sessionID, Type: model.EventError, Data: map[string]string{"error": r.err.Error()}, Timestamp: time.Now()})
		}
		if err := o.sessions.UpdateProgress(ctx, sessionID, completed, failed, &total, false); err != nil && o.log != nil {
			o.log.Warn("progress update failed", zap.Error(err))
		}
		_ = o.sessions.Heartbeat(ctx, sessionID)
	}
	return completed, failed
}

// processChunk runs C3(analyze) -> C4(embed) -> C5(persist) for one draft.
// Per-chunk failures are absorbed here and reported via the returned error
// only to drive counters; they never abort sibling chunks (spec.md §4.10
// 4d).
func (o *Orchestrator) processChunk(ctx context.Context, sessionID, url, wholeDoc string, d chunk.Draft, opts model.Options) error {
	chunkID := model.ChunkID(sessionID, d.Index)

	analyzeCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	analysis, err := o.analyzer.Analyze(analyzeCtx, d.Text, wholeDoc, analyze.Options{
		EnableContextualEmbeddings: opts.EnableContextualEmbeddings,
		GenerateSummary:            opts.GenerateSummary,
		ChunkIndex:                 d.Index,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("chunk %d analyze: %w", d.Index, err)
	}
	o.emit(model.Event{SessionID: sessionID, Type: model.EventAnalysisCompleted, Data: map[string]int{"chunk_index": d.Index}, Timestamp: time.Now()})

	embedInput := d.Text
	var contextualSummary *string
	if analysis.ContextualSummary != "" {
		s := analysis.ContextualSummary
		contextualSummary = &s
		embedInput = s + "\n\n" + d.Text
	}

	embedCtx, cancel2 := context.WithTimeout(ctx, 30*time.Second)
	results, err := o.embedder.Embed(embedCtx, []string{embedInput})
	cancel2()
	if err != nil {
		return fmt.Errorf("chunk %d embed: %w", d.Index, err)
	}
	if len(results) == 0 || results[0].Err != nil {
		if len(results) > 0 {
			err = results[0].Err
		}
		return fmt.Errorf("chunk %d embed: %w", d.Index, err)
	}
	o.emit(model.Event{SessionID: sessionID, Type: model.EventEmbeddingCreated, Data: map[string]int{"chunk_index": d.Index}, Timestamp: time.Now()})

	c := model.Chunk{
		ChunkID:                 chunkID,
		SessionID:               sessionID,
		URL:                     url,
		ChunkIndex:              d.Index,
		ChunkText:               d.Text,
		ContextualSummary:       contextualSummary,
		EmbeddingStatus:         model.EmbeddingStatusPending,
		ProcessingStatus:        model.ProcessingStatusCompleted,
		Analysis:                analysis,
		UsesContextualEmbedding: contextualSummary != nil,
	}
	if err := o.writer.WriteChunk(ctx, c, results[0].Vector); err != nil {
		return fmt.Errorf("chunk %d persist: %w", d.Index, err)
	}
	return nil
}

func (o *Orchestrator) emit(ev model.Event) {
	if o.events != nil {
		o.events.Broadcast(ev)
	}
}
