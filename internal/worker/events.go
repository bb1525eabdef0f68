package worker

import "time"

// DocumentEvent is published on config.TopicDocument after each document.
type DocumentEvent struct {
	RunID          string    `json:"run_id"`
	DocumentID     string    `json:"document_id"`
	Title          string    `json:"title"`
	Version        int       `json:"version"`
	Status         string    `json:"status"`
	Chunks         int       `json:"chunks"`
	ChunksUpserted int       `json:"chunks_upserted"`
	ChunksRejected int       `json:"chunks_rejected"`
	At             time.Time `json:"at"`
}

// RunEvent is published on config.TopicRun when a run ends.
type RunEvent struct {
	Summary
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}
