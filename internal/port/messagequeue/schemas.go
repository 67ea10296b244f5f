package messagequeue

import (
	"encoding/json"
	"time"
)

// EntryPayload is the schema for all tasklog.* messages: one published
// log entry.
type EntryPayload struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      string          `json:"kind"`
	Summary   string          `json:"summary"`
	Action    json.RawMessage `json:"action"`
}
