package worker

import (
	"context"
	"iter"
	"time"

	"docsync/features/job"
	"docsync/features/run"
	"docsync/internal/fetch"
	"docsync/internal/vector"
)

type Prober interface {
	Discover(ctx context.Context, baseURL string) (vector.Contract, error)
}

// Destination is the fixed insert contract of one run.
type Destination interface {
	Register(ctx context.Context) (bool, error)
	EncodeInsert(chunks []vector.Chunk) ([]byte, error)
	Submit(ctx context.Context, payload []byte) error
}

type DestinationFactory func(vector.Contract) Destination

// DocumentStream yields source documents once each.
type DocumentStream interface {
	Documents(ctx context.Context) iter.Seq2[fetch.Document, error]
	Stats() fetch.Stats
	ByID() bool
}

type RunRecorder interface {
	Save(ctx context.Context, r *run.Run) error
	Finish(ctx context.Context, r *run.Run) error
}

type JobStore interface {
	Save(ctx context.Context, j *job.Job) error
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

type Metrics interface {
	DocumentProcessed()
	BatchSent(outcome string, chunks int)
	RunFinished(state, variant string, fetchRequests int, elapsed time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) DocumentProcessed()                             {}
func (noopMetrics) BatchSent(string, int)                          {}
func (noopMetrics) RunFinished(string, string, int, time.Duration) {}
