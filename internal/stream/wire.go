package stream

import (
	"github.com/bytedance/sonic"

	"github.com/autollama/ingestor/internal/model"
)

// wireEvent is the exact JSON shape spec.md §6.1 requires:
// {"event":"<type>","data":<json>,"timestamp":"<RFC3339>"}.
type wireEvent struct {
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
	Timestamp string `json:"timestamp"`
}

func marshalEvent(ev model.Event) ([]byte, error) {
	w := wireEvent{
		Event:     string(ev.Type),
		Data:      ev.Data,
		Timestamp: ev.Timestamp.Format(timeRFC3339),
	}
	return sonic.Marshal(w)
}

const timeRFC3339 = "2006-01-02T15:04:05Z07:00"
