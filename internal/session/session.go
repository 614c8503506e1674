// Package session implements the Session Manager (C6): Start/UpdateProgress/
// Heartbeat/RecordError/End over a per-session_id striped lock, so
// concurrent chunk workers updating the same session never race while
// unrelated sessions proceed independently (spec.md §4.6). Generalized from
// sse-rag-service/main.go's single global clientsMux into a sharded variant
// sized for session cardinality rather than client cardinality.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/autollama/ingestor/internal/ingesterr"
	"github.com/autollama/ingestor/internal/model"
	"github.com/autollama/ingestor/internal/store/relational"
)

const defaultProgressInterval = 5 * time.Second

// Manager is the C6 contract.
type Manager struct {
	rel      *relational.Store
	locks    *shardedLock
	log      *zap.Logger
	throttle time.Duration

	mu       sync.Mutex // guards lastEmit
	lastEmit map[string]time.Time
}

func New(rel *relational.Store, log *zap.Logger, progressInterval time.Duration) *Manager {
	if progressInterval <= 0 {
		progressInterval = defaultProgressInterval
	}
	return &Manager{
		rel:      rel,
		locks:    newShardedLock(256),
		log:      log,
		throttle: progressInterval,
		lastEmit: make(map[string]time.Time),
	}
}

// Start creates a new session row in "processing" with last_heartbeat = now
// and returns its id (spec.md §4.6 state #1). If requestedID is non-empty
// (the job payload's session_id option, spec.md §6.2), it is used as the
// session id instead of minting a fresh one, so a client-provided id makes
// a rerun against the same session idempotent.
func (m *Manager) Start(ctx context.Context, url string, filename *string, requestedID string) (string, error) {
	id := requestedID
	if id == "" {
		id = uuid.NewString()
	}
	sess := model.Session{
		SessionID: id,
		URL:       url,
		Filename:  filename,
		Status:    model.SessionProcessing,
	}
	unlock := m.locks.lock(id)
	defer unlock()

	if err := m.rel.UpsertSession(ctx, sess); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateProgress is idempotent and throttled: redundant updates within the
// configured interval are coalesced unless force is true (spec.md §4.6).
func (m *Manager) UpdateProgress(ctx context.Context, sessionID string, completed, failed int, totalChunks *int, force bool) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	if !force && !m.shouldEmit(sessionID) {
		return nil
	}

	sess := model.Session{
		SessionID:       sessionID,
		Status:          model.SessionProcessing,
		TotalChunks:     totalChunks,
		CompletedChunks: completed,
		FailedChunks:    failed,
	}
	return m.rel.UpsertSession(ctx, sess)
}

func (m *Manager) shouldEmit(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	last, ok := m.lastEmit[sessionID]
	if ok && now.Sub(last) < m.throttle {
		return false
	}
	m.lastEmit[sessionID] = now
	return true
}

// Heartbeat updates last_heartbeat only, per spec.md §4.6.
func (m *Manager) Heartbeat(ctx context.Context, sessionID string) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()
	return m.rel.Heartbeat(ctx, sessionID)
}

// RecordError appends error context without moving the session to failed;
// only the orchestrator's terminal decision or Cleanup can do that (spec.md
// §4.6).
func (m *Manager) RecordError(ctx context.Context, sessionID string, cause error) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()

	if m.log != nil {
		m.log.Warn("session error recorded", zap.String("session_id", sessionID), zap.Error(cause))
	}
	msg := cause.Error()
	sess := model.Session{
		SessionID:    sessionID,
		Status:       model.SessionProcessing,
		ErrorMessage: &msg,
	}
	return m.rel.UpsertSession(ctx, sess)
}

// End transitions sessionID to a terminal state; a no-op if it's already
// terminal (spec.md §4.6's immutability rule). The underlying update is
// conditioned on the current status not already being terminal, so a
// racing Cleanup Service transition and an orchestrator's own End call
// can't clobber each other.
func (m *Manager) End(ctx context.Context, sessionID string, status model.SessionStatus, errMsg string) error {
	if !status.Terminal() {
		return ingesterr.New("session.End", ingesterr.Validation, nil)
	}
	unlock := m.locks.lock(sessionID)
	defer unlock()

	return m.rel.EndSession(ctx, sessionID, status, errMsg)
}
