// Package store composes the Persistence Writer (C5): the relational store
// is the system of record and is always written first; the vector store is
// written second and its failure degrades the chunk to embedding_status
// "failed" rather than failing the whole write, since a chunk without a
// vector is still retrievable narratively and can be re-embedded later
// (spec.md §4.5).
package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/store/relational"
	"github.com/autollama/ingestor/internal/store/vector"
)

// Writer is the C5 contract the orchestrator drives.
type Writer struct {
	rel *relational.Store
	vec *vector.Store
	log *zap.Logger
}

func New(rel *relational.Store, vec *vector.Store, log *zap.Logger) *Writer {
	return &Writer{rel: rel, vec: vec, log: log}
}

// WriteChunk persists chunk's text/metadata to the relational store, then,
// if vector is non-nil, writes its embedding. Relational failure is fatal
// to the chunk (ingesterr.Internal propagates); vector failure only
// downgrades embedding_status and is logged, never returned, so a
// vector-store outage doesn't stall the whole pipeline (spec.md §4.5).
func (w *Writer) WriteChunk(ctx context.Context, c model.Chunk, vec []float32) error {
	if err := w.rel.UpsertChunk(ctx, c); err != nil {
		return err
	}

	if w.vec == nil || vec == nil {
		return nil
	}

	payload := map[string]any{
		"session_id":                c.SessionID,
		"chunk_index":               c.ChunkIndex,
		"url":                       c.URL,
		"title":                     c.Title,
		"category":                  c.Analysis.Category,
		"sentiment":                 c.Analysis.Sentiment,
		"main_topics":               c.Analysis.MainTopics,
		"uses_contextual_embedding": c.UsesContextualEmbedding,
	}
	if err := w.vec.Upsert(ctx, c.ChunkID, vec, payload); err != nil {
		if w.log != nil {
			w.log.Warn("vector upsert failed, chunk persisted relationally only",
				zap.String("chunk_id", c.ChunkID), zap.Error(err))
		}
		return w.rel.MarkEmbeddingStatus(ctx, c.ChunkID, model.EmbeddingStatusFailed)
	}
	return w.rel.MarkEmbeddingStatus(ctx, c.ChunkID, model.EmbeddingStatusComplete)
}

// DeleteSessionVectors removes every vector point belonging to chunkIDs.
// It does not touch relational rows, and nothing in this module calls it.
func (w *Writer) DeleteSessionVectors(ctx context.Context, chunkIDs []string) error {
	if w.vec == nil || len(chunkIDs) == 0 {
		return nil
	}
	if err := w.vec.Delete(ctx, chunkIDs); err != nil {
		return ingesterr.New("store.DeleteSessionVectors", ingesterr.NetworkTransient, err)
	}
	return nil
}
