// Package retry implements the exponential-backoff-with-jitter retry loop
// shared by the LLM Analyzer (C3), Embedder (C4) and Job Queue (C8),
// generalized from the retry shape already present in the teacher's
// go-enhanced-rag-service/embedding_service.go into one reusable helper
// instead of three copies.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/autollama/ingestor/internal/ingesterr"
)

// Policy configures a retry loop.
type Policy struct {
	Base       time.Duration
	Cap        time.Duration
	Jitter     float64 // fraction, e.g. 0.2 for ±20%
	MaxAttempts int
}

// AnalyzerEmbedderPolicy is the §4.3 policy: base 1s, cap 30s, ±20% jitter,
// 3 attempts per chunk.
var AnalyzerEmbedderPolicy = Policy{Base: time.Second, Cap: 30 * time.Second, Jitter: 0.2, MaxAttempts: 3}

// Backoff computes backoff(k) = min(30s * 2^(k-1), 10min) with ±20% jitter,
// per spec.md §4.8's job-retry formula.
func Backoff(attempt int) time.Duration {
	base := 30 * time.Second
	d := base << uint(attempt-1)
	if d > 10*time.Minute || d <= 0 {
		d = 10 * time.Minute
	}
	return jitter(d, 0.2)
}

func jitter(d time.Duration, frac float64) time.Duration {
	delta := float64(d) * frac
	offset := (rand.Float64()*2 - 1) * delta
	return d + time.Duration(offset)
}

// Do runs fn up to p.MaxAttempts times, sleeping with exponential backoff
// between attempts, stopping early if err is not retryable or ctx is done.
// It returns the last error encountered.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.Base
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return ingesterr.New("retry.Do", ingesterr.Cancelled, err)
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !ingesterr.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ingesterr.New("retry.Do", ingesterr.Cancelled, ctx.Err())
		case <-time.After(jitter(delay, p.Jitter)):
		}
		delay *= 2
		if delay > p.Cap {
			delay = p.Cap
		}
	}
	return lastErr
}
