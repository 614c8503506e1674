package queue

import (
	"github.com/bytedance/sonic"

	"github.com/autollama/ingestor/internal/model"
)

func marshalResult(r model.JobResult) ([]byte, error) {
	return sonic.Marshal(r)
}

// DecodePayload parses a job's opaque payload bytes (spec.md §6.2), used by
// the composition root's queue.Handler before handing the job to the
// orchestrator.
func DecodePayload(data []byte) (model.JobPayload, error) {
	var p model.JobPayload
	err := sonic.Unmarshal(data, &p)
	return p, err
}

// EncodePayload is the inverse of DecodePayload, used when a client
// request is turned into a new job.
func EncodePayload(p model.JobPayload) ([]byte, error) {
	return sonic.Marshal(p)
}
