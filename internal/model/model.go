// Package model holds the shared data-model types for the ingestion
// pipeline: Chunk, Session, Job and Event, plus their enums.
package model

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// ContentType enumerates the recognized document content types.
type ContentType string

const (
	ContentTypeURL      ContentType = "url"
	ContentTypePDF      ContentType = "pdf"
	ContentTypeEPUB     ContentType = "epub"
	ContentTypeDOCX     ContentType = "docx"
	ContentTypeCSV      ContentType = "csv"
	ContentTypeHTML     ContentType = "html"
	ContentTypeText     ContentType = "text"
	ContentTypeMarkdown ContentType = "markdown"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeURL, ContentTypePDF, ContentTypeEPUB, ContentTypeDOCX,
		ContentTypeCSV, ContentTypeHTML, ContentTypeText, ContentTypeMarkdown:
		return true
	}
	return false
}

// UploadSource enumerates where a document came from.
type UploadSource string

const (
	UploadSourceUser    UploadSource = "user"
	UploadSourceAPI     UploadSource = "api"
	UploadSourceWebhook UploadSource = "webhook"
	UploadSourceBatch   UploadSource = "batch"
)

// EmbeddingStatus tracks the lifecycle of a chunk's vector.
type EmbeddingStatus string

const (
	EmbeddingStatusPending    EmbeddingStatus = "pending"
	EmbeddingStatusProcessing EmbeddingStatus = "processing"
	EmbeddingStatusComplete   EmbeddingStatus = "complete"
	EmbeddingStatusFailed     EmbeddingStatus = "failed"
	EmbeddingStatusSkipped    EmbeddingStatus = "skipped"
)

// ProcessingStatus mirrors a session's status at the chunk level.
type ProcessingStatus string

const (
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusCompleted  ProcessingStatus = "completed"
	ProcessingStatusFailed     ProcessingStatus = "failed"
	ProcessingStatusCancelled  ProcessingStatus = "cancelled"
)

// SessionStatus is the session state-machine's state.
type SessionStatus string

const (
	SessionProcessing SessionStatus = "processing"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
	SessionCancelled  SessionStatus = "cancelled"
	SessionTimeout    SessionStatus = "timeout"
)

// Terminal reports whether the status is one of the immutable end states.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled, SessionTimeout:
		return true
	}
	return false
}

// JobType enumerates the recognized job payload shapes.
type JobType string

const (
	JobTypeURLProcessing   JobType = "url_processing"
	JobTypeFileProcessing  JobType = "file_processing"
	JobTypeBatchProcessing JobType = "batch_processing"
	JobTypeReprocessing    JobType = "reprocessing"
)

// JobStatus is the job-queue state machine's state.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
	JobRetrying   JobStatus = "retrying"
)

func (s JobStatus) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	}
	return false
}

// KeyEntities groups named entities extracted from a chunk.
type KeyEntities struct {
	People        []string `json:"people,omitempty"`
	Organizations []string `json:"organizations,omitempty"`
	Locations     []string `json:"locations,omitempty"`
}

// Analysis is the result of the LLM Analyzer (C3) for one chunk.
type Analysis struct {
	Sentiment         string      `json:"sentiment,omitempty"`
	Category          string      `json:"category,omitempty"`
	ContentType       string      `json:"content_type,omitempty"`
	TechnicalLevel    string      `json:"technical_level,omitempty"`
	MainTopics        []string    `json:"main_topics,omitempty"`
	KeyConcepts       string      `json:"key_concepts,omitempty"`
	Emotions          []string    `json:"emotions,omitempty"`
	Tags              string      `json:"tags,omitempty"`
	KeyEntities       KeyEntities `json:"key_entities,omitempty"`
	ContextualSummary string      `json:"contextual_summary,omitempty"`
	// DocumentSummary is only populated for chunk 0 when generate_summary
	// is requested; it is not a Chunk column, the orchestrator copies it
	// onto chunk 0's stored metadata.
	DocumentSummary string `json:"document_summary,omitempty"`
	// AnalysisError records that the provider returned output that could
	// not be coerced into this schema; Analysis is still the zero/default
	// value in that case rather than an error being thrown (§4.3).
	AnalysisError string `json:"analysis_error,omitempty"`
}

// Chunk is the atomic unit of the knowledge base (spec.md §3).
type Chunk struct {
	ChunkID                 string
	SessionID               string
	URL                     string
	Title                   string
	ChunkIndex              int
	ChunkText               string
	ContextualSummary       *string
	EmbeddingStatus         EmbeddingStatus
	ProcessingStatus        ProcessingStatus
	Analysis                Analysis
	UsesContextualEmbedding bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ChunkID is deterministic from (session_id, chunk_index), per spec.md §3's
// invariant and testable property 6. It is a stable, storage-agnostic
// string so it can double as both the relational primary key and the
// vector-store point id (spec.md §6.4 mandates they're equal).
func ChunkID(sessionID string, chunkIndex int) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s:%d", sessionID, chunkIndex)))
	return hex.EncodeToString(sum[:])
}

// Session is one ingestion attempt (spec.md §3).
type Session struct {
	SessionID       string
	URL             string
	Filename        *string
	Status          SessionStatus
	TotalChunks     *int
	CompletedChunks int
	FailedChunks    int
	LastHeartbeat   time.Time
	ErrorMessage    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Done reports whether completed+failed chunks account for every chunk.
func (s *Session) Done() bool {
	if s.TotalChunks == nil || *s.TotalChunks <= 0 {
		return false
	}
	return s.CompletedChunks+s.FailedChunks >= *s.TotalChunks
}

// Options carries the recognized job payload option keys (spec.md §6.2).
type Options struct {
	ChunkSize                   int
	ChunkOverlap                int
	EnableContextualEmbeddings  bool
	GenerateSummary             bool
	SessionID                   string
}

// Clamp enforces the ranges from spec.md §4.2.
func (o *Options) Clamp() {
	if o.ChunkSize < 100 {
		o.ChunkSize = 100
	}
	if o.ChunkSize > 5000 {
		o.ChunkSize = 5000
	}
	maxOverlap := o.ChunkSize
	if maxOverlap > 500 {
		maxOverlap = 500
	}
	if o.ChunkOverlap < 0 {
		o.ChunkOverlap = 0
	}
	if o.ChunkOverlap > maxOverlap {
		o.ChunkOverlap = maxOverlap
	}
}

// Job is a durable queued unit of work owning exactly one Session.
type Job struct {
	JobID        string
	JobType      JobType
	Status       JobStatus
	Priority     int
	Payload      []byte // opaque JSON, see spec.md §6.2
	Result       []byte // opaque JSON, set on terminal
	ErrorMessage *string
	Attempts     int
	MaxAttempts  int
	RetryAfter   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// JobPayload is the decoded shape of Job.Payload (spec.md §6.2).
type JobPayload struct {
	JobType   JobType `json:"job_type"`
	URL       string  `json:"url,omitempty"`
	UploadRef string  `json:"upload_ref,omitempty"`
	Options   struct {
		ChunkSize                  int    `json:"chunk_size,omitempty"`
		ChunkOverlap               int    `json:"chunk_overlap,omitempty"`
		EnableContextualEmbeddings bool   `json:"enable_contextual_embeddings,omitempty"`
		GenerateSummary            bool   `json:"generate_summary,omitempty"`
		SessionID                  string `json:"session_id,omitempty"`
	} `json:"options"`
}

// JobResult is the decoded shape of Job.Result, set on every terminal job.
type JobResult struct {
	SessionID       string `json:"session_id"`
	CompletedChunks int    `json:"completed_chunks"`
	FailedChunks    int    `json:"failed_chunks"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

// EventType enumerates the recognized progress event kinds.
type EventType string

const (
	EventProcessingStarted EventType = "processing_started"
	EventChunkProcessed    EventType = "chunk_processed"
	EventEmbeddingCreated  EventType = "embedding_created"
	EventAnalysisCompleted EventType = "analysis_completed"
	EventProgressUpdate    EventType = "progress_update"
	EventSessionUpdated    EventType = "session_updated"
	EventProcessingDone    EventType = "processing_completed"
	EventError             EventType = "error_occurred"
	EventHeartbeat         EventType = "heartbeat"
	EventConnected         EventType = "connected"
)

// Event is the in-memory-only progress record the stream service fans out.
type Event struct {
	SessionID string // empty for global broadcasts
	Type      EventType
	Data      any
	Timestamp time.Time
}
