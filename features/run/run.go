package run

import "time"

const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusAborted = "aborted"
)

// Run is the ledger entry of one sync invocation.
type Run struct {
	ID                 string     `json:"id"`
	Status             string     `json:"status"`
	Variant            string     `json:"variant"`
	Mode               string     `json:"mode"`
	DocumentsProcessed int        `json:"documents_processed"`
	PagesFetched       int        `json:"pages_fetched"`
	ChunksUpserted     int        `json:"chunks_upserted"`
	ChunksRejected     int        `json:"chunks_rejected"`
	Error              string     `json:"error,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}
