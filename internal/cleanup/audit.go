package cleanup

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/autollama/ingestor/internal/ingesterr"
)

// auditRun inserts one row into cleanup_runs recording what a scan did,
// inside the same transaction as the rows it touched (spec.md §4.9).
func (s *Service) auditRun(ctx context.Context, tx pgx.Tx, scanName string, count int, reason string) error {
	const q = `
INSERT INTO cleanup_runs (scan_name, affected_count, reason, ran_at)
VALUES ($1, $2, $3, now())
`
	if _, err := tx.Exec(ctx, q, scanName, count, reason); err != nil {
		return ingesterr.New("cleanup.auditRun", ingesterr.Internal, err)
	}
	return nil
}

func commitOrInternal(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return ingesterr.New("cleanup.commit", ingesterr.Internal, err)
	}
	return nil
}
