// Package queue implements the Job Queue (C8): a Postgres-backed durable
// queue using SELECT...FOR UPDATE SKIP LOCKED for atomic priority-ordered
// claims, plus a worker pool that polls on a ticker and a buffered wakeup
// channel so enqueue doesn't wait for the next poll tick — generalized from
// the channel-based dispatch in sse-rag-service/main.go's embeddingQueue/
// generationQueue pattern, moved from an in-memory channel onto a durable
// table-backed queue (spec.md §4.8).
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/retry"
)

// Handler processes a claimed job and returns its result or error. cancelled
// reports whether Cancel has since been called for this job, so a handler
// can poll it at phase boundaries the way it already polls ctx (spec.md
// §4.8's cancellation contract).
type Handler func(ctx context.Context, job model.Job, cancelled func() bool) (model.JobResult, error)

// cancelState is a claimed job's in-memory cancellation flag: Cancel signals
// it, the handler running that job polls it. It only exists for the
// lifetime of one process's claim on the job, which is all a single
// worker pool needs.
type cancelState struct {
	ch   chan struct{}
	once sync.Once
}

func newCancelState() *cancelState { return &cancelState{ch: make(chan struct{})} }

func (c *cancelState) signal() { c.once.Do(func() { close(c.ch) }) }

func (c *cancelState) cancelled() bool {
	select {
	case <-c.ch:
		return true
	default:
		return false
	}
}

// Queue owns the durable job table.
type Queue struct {
	pool   *pgxpool.Pool
	log    *zap.Logger
	active sync.Map // job_id -> *cancelState, for jobs claimed by this process
}

func New(pool *pgxpool.Pool, log *zap.Logger) *Queue {
	return &Queue{pool: pool, log: log}
}

// Enqueue inserts a new job in "queued" with the given priority and payload.
func (q *Queue) Enqueue(ctx context.Context, jobType model.JobType, priority int, payload []byte, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	var jobID string
	const insert = `
INSERT INTO jobs (job_id, job_type, status, priority, payload, attempts, max_attempts, created_at, updated_at)
VALUES (gen_random_uuid(), $1, 'queued', $2, $3, 0, $4, now(), now())
RETURNING job_id
`
	err := q.pool.QueryRow(ctx, insert, jobType, priority, payload, maxAttempts).Scan(&jobID)
	if err != nil {
		return "", ingesterr.New("queue.Enqueue", ingesterr.Internal, err)
	}
	return jobID, nil
}

// claimQuery atomically selects and locks the highest-priority, oldest
// eligible job, per spec.md §4.8 (testable property 5: of two workers
// racing an empty queue's single insert, exactly one claims it).
const claimQuery = `
SELECT job_id, job_type, priority, payload, attempts, max_attempts
FROM jobs
WHERE status IN ('queued', 'retrying')
  AND (retry_after IS NULL OR retry_after <= now())
ORDER BY priority DESC, created_at ASC
FOR UPDATE SKIP LOCKED
LIMIT 1
`

// Claim atomically claims one eligible job and marks it "processing", or
// returns (model.Job{}, false, nil) if none are eligible.
func (q *Queue) Claim(ctx context.Context) (model.Job, bool, error) {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return model.Job{}, false, ingesterr.New("queue.Claim", ingesterr.Internal, err)
	}
	defer tx.Rollback(ctx)

	var job model.Job
	row := tx.QueryRow(ctx, claimQuery)
	err = row.Scan(&job.JobID, &job.JobType, &job.Priority, &job.Payload, &job.Attempts, &job.MaxAttempts)
	if err == pgx.ErrNoRows {
		return model.Job{}, false, nil
	}
	if err != nil {
		return model.Job{}, false, ingesterr.New("queue.Claim", ingesterr.Internal, err)
	}

	const update = `
UPDATE jobs SET status = 'processing', started_at = now(), attempts = attempts + 1, updated_at = now()
WHERE job_id = $1
`
	if _, err := tx.Exec(ctx, update, job.JobID); err != nil {
		return model.Job{}, false, ingesterr.New("queue.Claim", ingesterr.Internal, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Job{}, false, ingesterr.New("queue.Claim", ingesterr.Internal, err)
	}

	job.Status = model.JobProcessing
	job.Attempts++
	q.active.Store(job.JobID, newCancelState())
	return job, true, nil
}

// CancelFunc returns a predicate a handler can poll to learn whether Cancel
// has been called for jobID since it was claimed. Jobs with no registered
// state (never claimed by this process, or already released) are reported
// as not cancelled.
func (q *Queue) CancelFunc(jobID string) func() bool {
	v, ok := q.active.Load(jobID)
	if !ok {
		return func() bool { return false }
	}
	cs := v.(*cancelState)
	return cs.cancelled
}

// Release drops jobID's in-memory cancellation state once its handler has
// returned, so it doesn't leak across the job's (re)claim lifecycle.
func (q *Queue) Release(jobID string) {
	q.active.Delete(jobID)
}

// Complete marks jobID "completed" with result, unless it has already
// reached a terminal state (e.g. a racing Cancel), per spec.md §4.8's
// cancellation contract.
func (q *Queue) Complete(ctx context.Context, jobID string, result []byte) error {
	const update = `
UPDATE jobs SET status = 'completed', result = $2, completed_at = now(), updated_at = now()
WHERE job_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
`
	_, err := q.pool.Exec(ctx, update, jobID, result)
	if err != nil {
		return ingesterr.New("queue.Complete", ingesterr.Internal, err)
	}
	return nil
}

// Fail marks jobID either "retrying" (with a computed retry_after) or
// "failed" if attempts have exhausted max_attempts, per spec.md §4.8's
// backoff formula (internal/retry.Backoff). Either transition is a no-op if
// the job already reached a terminal state (e.g. a racing Cancel).
func (q *Queue) Fail(ctx context.Context, job model.Job, cause error) error {
	if job.Attempts >= job.MaxAttempts || !ingesterr.Retryable(cause) {
		msg := cause.Error()
		const update = `
UPDATE jobs SET status = 'failed', error_message = $2, completed_at = now(), updated_at = now()
WHERE job_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
`
		_, err := q.pool.Exec(ctx, update, job.JobID, msg)
		if err != nil {
			return ingesterr.New("queue.Fail", ingesterr.Internal, err)
		}
		return nil
	}

	retryAfter := time.Now().Add(retry.Backoff(job.Attempts))
	msg := cause.Error()
	const update = `
UPDATE jobs SET status = 'retrying', error_message = $2, retry_after = $3, updated_at = now()
WHERE job_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
`
	_, err := q.pool.Exec(ctx, update, job.JobID, msg, retryAfter)
	if err != nil {
		return ingesterr.New("queue.Fail", ingesterr.Internal, err)
	}
	return nil
}

// Cancel marks jobID "cancelled" if it isn't already terminal, and signals
// any in-memory cancellation state registered for it by Claim so a running
// handler in this process observes it at its next CancelFunc poll (spec.md
// §4.8's cancellation contract).
func (q *Queue) Cancel(ctx context.Context, jobID string) error {
	const update = `
UPDATE jobs SET status = 'cancelled', updated_at = now(), completed_at = now()
WHERE job_id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
`
	tag, err := q.pool.Exec(ctx, update, jobID)
	if err != nil {
		return ingesterr.New("queue.Cancel", ingesterr.Internal, err)
	}
	if tag.RowsAffected() > 0 {
		if v, ok := q.active.Load(jobID); ok {
			v.(*cancelState).signal()
		}
	}
	return nil
}
