// Package cleanup implements the Cleanup Service (C9): three independent
// ticker loops (heartbeat scan, timeout scan, orphan scan) plus a
// safety/pressure check gating the non-emergency scans, each wrapped in a
// transaction that also writes a cleanup_runs audit row (spec.md §4.9).
package cleanup

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/store/relational"
)

// Config holds the tunables from spec.md §4.9/§6.5.
type Config struct {
	EmergencyInterval time.Duration // heartbeat scan cadence, default 30s
	CleanupInterval   time.Duration // timeout + orphan scan cadence, default 2min
	HeartbeatTimeout  time.Duration // default 90s
	SessionTimeout    time.Duration // default 8min
	// PressureRatio and PressureRows gate the non-emergency scans: if more
	// than PressureRatio of sessions are "processing" and more than
	// PressureRows sessions are "processing", the scan is skipped for that
	// tick. There is no force override.
	PressureRatio float64
	PressureRows  int
}

func DefaultConfig() Config {
	return Config{
		EmergencyInterval: 30 * time.Second,
		CleanupInterval:   2 * time.Minute,
		HeartbeatTimeout:  90 * time.Second,
		SessionTimeout:    8 * time.Minute,
		PressureRatio:     0.5,
		PressureRows:      100,
	}
}

// Service runs the scan loops against rel.
type Service struct {
	rel    *relational.Store
	pool   *pgxpool.Pool
	vec    vectorDeleter
	cfg    Config
	log    *zap.Logger
}

// vectorDeleter is the narrow slice of internal/store/vector.Store that
// Service holds, kept as an interface so cleanup doesn't import the qdrant
// client directly. No scan calls it.
type vectorDeleter interface {
	Delete(ctx context.Context, chunkIDs []string) error
}

func New(rel *relational.Store, pool *pgxpool.Pool, vec vectorDeleter, cfg Config, log *zap.Logger) *Service {
	return &Service{rel: rel, pool: pool, vec: vec, cfg: cfg, log: log}
}

// Run starts the three scan loops and blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	go s.loop(ctx, s.cfg.EmergencyInterval, s.heartbeatScan)
	go s.loop(ctx, s.cfg.CleanupInterval, s.timeoutScan)
	go s.loop(ctx, s.cfg.CleanupInterval, s.orphanScan)
	<-ctx.Done()
}

func (s *Service) loop(ctx context.Context, interval time.Duration, scan func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := scan(ctx); err != nil && s.log != nil {
				s.log.Error("cleanup scan failed", zap.Error(err))
			}
		}
	}
}

// heartbeatScan fails sessions whose last_heartbeat is stale (spec.md
// §4.9 #1). It is an emergency scan and is not gated by the pressure check.
func (s *Service) heartbeatScan(ctx context.Context) error {
	ids, err := s.rel.StaleHeartbeats(ctx, s.cfg.HeartbeatTimeout)
	if err != nil {
		return err
	}
	return s.failSessions(ctx, "heartbeat_scan", ids, "heartbeat timeout")
}

// timeoutScan fails sessions that have been processing longer than
// session_timeout (spec.md §4.9 #2), gated by the pressure/safety check.
func (s *Service) timeoutScan(ctx context.Context) error {
	allowed, err := s.safeToRun(ctx)
	if err != nil {
		return err
	}
	if !allowed {
		if s.log != nil {
			s.log.Warn("timeout scan skipped: pressure check tripped")
		}
		return nil
	}
	ids, err := s.staleSessions(ctx)
	if err != nil {
		return err
	}
	return s.failSessions(ctx, "timeout_scan", ids, "session timeout exceeded")
}

func (s *Service) staleSessions(ctx context.Context) ([]string, error) {
	const q = `
SELECT session_id FROM sessions
WHERE status = 'processing' AND created_at < now() - $1::interval
`
	rows, err := s.pool.Query(ctx, q, s.cfg.SessionTimeout.String())
	if err != nil {
		return nil, ingesterr.New("cleanup.staleSessions", ingesterr.Internal, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ingesterr.New("cleanup.staleSessions", ingesterr.Internal, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// orphanScan finds chunks whose session_id no longer exists in sessions
// (spec.md §4.9 #3) and keeps them complete if their embedding_status is
// already complete, marking them failed otherwise, logging counts either
// way; the vector store is not queried. Gated by the same pressure check.
func (s *Service) orphanScan(ctx context.Context) error {
	allowed, err := s.safeToRun(ctx)
	if err != nil {
		return err
	}
	if !allowed {
		if s.log != nil {
			s.log.Warn("orphan scan skipped: pressure check tripped")
		}
		return nil
	}

	const q = `
SELECT c.chunk_id, c.embedding_status
FROM chunks c
LEFT JOIN sessions s ON s.session_id = c.session_id
WHERE s.session_id IS NULL
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return ingesterr.New("cleanup.orphanScan", ingesterr.Internal, err)
	}
	type orphan struct {
		id     string
		status model.EmbeddingStatus
	}
	var orphans []orphan
	for rows.Next() {
		var o orphan
		if err := rows.Scan(&o.id, &o.status); err != nil {
			rows.Close()
			return ingesterr.New("cleanup.orphanScan", ingesterr.Internal, err)
		}
		orphans = append(orphans, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ingesterr.New("cleanup.orphanScan", ingesterr.Internal, err)
	}
	if len(orphans) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ingesterr.New("cleanup.orphanScan", ingesterr.Internal, err)
	}
	defer tx.Rollback(ctx)

	for _, o := range orphans {
		newStatus := model.EmbeddingStatusFailed
		if o.status == model.EmbeddingStatusComplete {
			newStatus = model.EmbeddingStatusComplete
		}
		if _, err := tx.Exec(ctx, `UPDATE chunks SET embedding_status = $2, updated_at = now() WHERE chunk_id = $1`, o.id, newStatus); err != nil {
			return ingesterr.New("cleanup.orphanScan", ingesterr.Internal, err)
		}
	}
	if err := s.auditRun(ctx, tx, "orphan_scan", len(orphans), "orphaned chunks resolved"); err != nil {
		return err
	}
	return commitOrInternal(ctx, tx)
}

// failSessions transitions ids to failed with reason, each inside one
// transaction that also writes a cleanup_runs audit row.
func (s *Service) failSessions(ctx context.Context, scanName string, ids []string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ingesterr.New("cleanup."+scanName, ingesterr.Internal, err)
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		const update = `
UPDATE sessions SET status = 'failed', error_message = $2, updated_at = now()
WHERE session_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled', 'timeout')
`
		if _, err := tx.Exec(ctx, update, id, reason); err != nil {
			return ingesterr.New("cleanup."+scanName, ingesterr.Internal, err)
		}
	}
	if err := s.auditRun(ctx, tx, scanName, len(ids), reason); err != nil {
		return err
	}
	if err := commitOrInternal(ctx, tx); err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("cleanup scan transitioned sessions", zap.String("scan", scanName), zap.Int("count", len(ids)), zap.String("reason", reason))
	}
	return nil
}

// safeToRun implements the pressure/safety check: if more than
// PressureRatio of sessions are processing AND more than PressureRows
// sessions are processing, the scan aborts to avoid a cascading failure
// storm (spec.md §4.9).
func (s *Service) safeToRun(ctx context.Context) (bool, error) {
	const q = `
SELECT
	count(*) FILTER (WHERE status = 'processing')::float8 / greatest(count(*), 1),
	count(*) FILTER (WHERE status = 'processing')
FROM sessions
`
	var ratio float64
	var processing int
	if err := s.pool.QueryRow(ctx, q).Scan(&ratio, &processing); err != nil {
		return false, ingesterr.New("cleanup.safeToRun", ingesterr.Internal, err)
	}
	if ratio > s.cfg.PressureRatio && processing > s.cfg.PressureRows {
		return false, nil
	}
	return true, nil
}
