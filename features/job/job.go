package job

import (
	"encoding/json"
	"time"
)

// Job is an insert sub-batch the destination rejected, kept for replay.
type Job struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id"`
	Variant    string          `json:"variant"`
	DocumentID string          `json:"document_id"`
	ChunkCount int             `json:"chunk_count"`
	Payload    json.RawMessage `json:"payload"`
	Error      string          `json:"error"`
	Retries    int             `json:"retries"`
	CreatedAt  time.Time       `json:"created_at"`
}
