// Package relational implements the relational half of the Persistence
// Writer (C5) over github.com/jackc/pgx/v5, storing chunk rows and session
// metadata. Chunk upserts are idempotent on chunk_id so a retried or
// re-run job never double-inserts.
package relational

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
)

// Store is the relational side of persistence: sessions and chunks (jobs
// live in internal/queue).
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertChunk inserts or updates a chunk row keyed by chunk_id, preserving
// the original created_at on update (spec.md §4.5/§6.3).
func (s *Store) UpsertChunk(ctx context.Context, c model.Chunk) error {
	const q = `
INSERT INTO chunks (
	chunk_id, session_id, url, title, chunk_index, chunk_text,
	contextual_summary, embedding_status, processing_status, analysis,
	uses_contextual_embedding, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
ON CONFLICT (chunk_id) DO UPDATE SET
	chunk_text = EXCLUDED.chunk_text,
	contextual_summary = EXCLUDED.contextual_summary,
	embedding_status = EXCLUDED.embedding_status,
	processing_status = EXCLUDED.processing_status,
	analysis = EXCLUDED.analysis,
	updated_at = now()
`
	_, err := s.pool.Exec(ctx, q,
		c.ChunkID, c.SessionID, c.URL, c.Title, c.ChunkIndex, c.ChunkText,
		c.ContextualSummary, c.EmbeddingStatus, c.ProcessingStatus, c.Analysis,
		c.UsesContextualEmbedding,
	)
	if err != nil {
		return ingesterr.New("relational.UpsertChunk", ingesterr.Internal, err)
	}
	return nil
}

// MarkEmbeddingStatus updates a single chunk's embedding_status without
// touching the rest of the row, used after a per-chunk embed attempt.
func (s *Store) MarkEmbeddingStatus(ctx context.Context, chunkID string, status model.EmbeddingStatus) error {
	const q = `UPDATE chunks SET embedding_status = $2, updated_at = now() WHERE chunk_id = $1`
	_, err := s.pool.Exec(ctx, q, chunkID, status)
	if err != nil {
		return ingesterr.New("relational.MarkEmbeddingStatus", ingesterr.Internal, err)
	}
	return nil
}

// UpsertSession inserts or updates the session row. A row already in a
// terminal state is never updated here; a racing Start/
// UpdateProgress/RecordError call here can't resurrect an already-terminal
// session back to "processing" (spec.md §3's terminal-immutability
// invariant), matching EndSession's own guard.
func (s *Store) UpsertSession(ctx context.Context, sess model.Session) error {
	const q = `
INSERT INTO sessions (
	session_id, url, filename, status, total_chunks, completed_chunks,
	failed_chunks, error_message, created_at, updated_at, last_heartbeat
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now(), now())
ON CONFLICT (session_id) DO UPDATE SET
	status = EXCLUDED.status,
	total_chunks = EXCLUDED.total_chunks,
	completed_chunks = EXCLUDED.completed_chunks,
	failed_chunks = EXCLUDED.failed_chunks,
	error_message = EXCLUDED.error_message,
	updated_at = now(),
	last_heartbeat = now()
WHERE sessions.status NOT IN ('completed', 'failed', 'cancelled', 'timeout')
`
	_, err := s.pool.Exec(ctx, q,
		sess.SessionID, sess.URL, sess.Filename, sess.Status,
		sess.TotalChunks, sess.CompletedChunks, sess.FailedChunks,
		sess.ErrorMessage,
	)
	if err != nil {
		return ingesterr.New("relational.UpsertSession", ingesterr.Internal, err)
	}
	return nil
}

// Heartbeat bumps last_heartbeat for sessionID without touching other fields.
func (s *Store) Heartbeat(ctx context.Context, sessionID string) error {
	const q = `UPDATE sessions SET last_heartbeat = now() WHERE session_id = $1`
	_, err := s.pool.Exec(ctx, q, sessionID)
	if err != nil {
		return ingesterr.New("relational.Heartbeat", ingesterr.Internal, err)
	}
	return nil
}

// EndSession conditionally transitions sessionID to status, a no-op if the
// session is already in a terminal state (spec.md §4.6).
func (s *Store) EndSession(ctx context.Context, sessionID string, status model.SessionStatus, errMsg string) error {
	const q = `
UPDATE sessions SET status = $2, error_message = NULLIF($3, ''), updated_at = now()
WHERE session_id = $1
  AND status NOT IN ('completed', 'failed', 'cancelled', 'timeout')
`
	_, err := s.pool.Exec(ctx, q, sessionID, status, errMsg)
	if err != nil {
		return ingesterr.New("relational.EndSession", ingesterr.Internal, err)
	}
	return nil
}

// StaleHeartbeats returns session IDs whose heartbeat is older than
// olderThan and whose status is not terminal, for the Cleanup Service's
// heartbeat scan (spec.md §4.9).
func (s *Store) StaleHeartbeats(ctx context.Context, olderThan time.Duration) ([]string, error) {
	const q = `
SELECT session_id FROM sessions
WHERE last_heartbeat < now() - $1::interval
  AND status NOT IN ('completed', 'failed', 'cancelled', 'timeout')
`
	rows, err := s.pool.Query(ctx, q, olderThan.String())
	if err != nil {
		return nil, ingesterr.New("relational.StaleHeartbeats", ingesterr.Internal, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ingesterr.New("relational.StaleHeartbeats", ingesterr.Internal, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
