package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"docsync/features/job"
	"docsync/features/run"
	"docsync/internal/config"
	"docsync/internal/fetch"
	"docsync/internal/middleware"
	"docsync/internal/normalize"
	"docsync/internal/telemetry"
	"docsync/internal/vector"
)

type State string

const (
	StateInit            State = "init"
	StateCapabilityFixed State = "capability_fixed"
	StateStreaming       State = "streaming"
	StateDone            State = "done"
	StateAborted         State = "aborted"
)

const (
	outcomeUpserted = "upserted"
	outcomeRejected = "rejected"
	outcomeFatal    = "fatal"

	sideOutputTimeout = 10 * time.Second
)

// Summary is the outcome of one run. Counters are partial when the run
// aborted.
type Summary struct {
	RunID              string `json:"run_id"`
	State              State  `json:"state"`
	Variant            string `json:"variant"`
	DocumentsProcessed int    `json:"documents_processed"`
	PagesFetched       int    `json:"pages_fetched"`
	ChunksUpserted     int    `json:"chunks_upserted"`
	ChunksRejected     int    `json:"chunks_rejected"`
}

type Settings struct {
	BaseURL            string
	ChunkTokens        int
	ChunkOverlap       int
	MaxChunksPerInsert int
	RunID              string
	Normalize          func(html string) string
}

// Deps are the collaborators of a run. Runs, Jobs, Publisher and Metrics
// are optional.
type Deps struct {
	Probe       Prober
	Destination DestinationFactory
	Documents   DocumentStream
	Runs        RunRecorder
	Jobs        JobStore
	Publisher   Publisher
	Metrics     Metrics
}

// Orchestrator drives one sync run: probe, register, then stream documents
// through normalize, chunk and insert.
type Orchestrator struct {
	deps     Deps
	settings Settings
}

func NewOrchestrator(deps Deps, settings Settings) *Orchestrator {
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if settings.Normalize == nil {
		settings.Normalize = normalize.HTMLToMarkdown
	}
	if settings.MaxChunksPerInsert <= 0 {
		settings.MaxChunksPerInsert = 128
	}
	return &Orchestrator{deps: deps, settings: settings}
}

// Run executes the sync once. The summary is returned with every error.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: o.settings.RunID, State: StateInit}
	if sum.RunID == "" {
		sum.RunID = uuid.NewString()
	}

	ctx = middleware.WithCorrelationID(ctx, sum.RunID)
	ctx, span := telemetry.StartSpan(ctx, "sync.run", "docsync sync")
	defer span.End()
	span.SetTag("run_id", sum.RunID)

	started := time.Now()
	o.recordStart(ctx, sum)

	err := o.run(ctx, &sum)
	sum.PagesFetched = o.deps.Documents.Stats().Requests
	if err != nil {
		sum.State = StateAborted
		if !errors.Is(err, context.Canceled) {
			span.SetError(err)
		}
		slog.ErrorContext(ctx, "sync aborted", "error", err, "documents", sum.DocumentsProcessed)
	} else {
		sum.State = StateDone
	}

	elapsed := time.Since(started)
	o.deps.Metrics.RunFinished(string(sum.State), sum.Variant, sum.PagesFetched, elapsed)
	o.recordFinish(ctx, sum, err)
	o.publish(ctx, config.TopicRun, RunEvent{
		Summary:    sum,
		Error:      errString(err),
		DurationMS: elapsed.Milliseconds(),
		At:         time.Now().UTC(),
	})

	slog.InfoContext(ctx, "sync finished",
		"state", sum.State,
		"variant", sum.Variant,
		"documents", sum.DocumentsProcessed,
		"pages_fetched", sum.PagesFetched,
		"chunks_upserted", sum.ChunksUpserted,
		"chunks_rejected", sum.ChunksRejected,
		"duration", elapsed,
	)
	return sum, err
}

func (o *Orchestrator) run(ctx context.Context, sum *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	contract, err := o.deps.Probe.Discover(ctx, o.settings.BaseURL)
	if err != nil {
		return fmt.Errorf("discover vector api: %w", err)
	}
	sum.Variant = string(contract.Variant)
	sum.State = StateCapabilityFixed

	dest := o.deps.Destination(contract)
	existed, err := dest.Register(ctx)
	if err != nil {
		slog.WarnContext(ctx, "collection registration failed, continuing", "error", err)
	} else {
		slog.InfoContext(ctx, "collection ready", "variant", contract.Variant, "existed", existed)
	}

	sum.State = StateStreaming
	for doc, err := range o.deps.Documents.Documents(ctx) {
		if err != nil {
			return err
		}
		if err := o.process(ctx, dest, contract, doc, sum); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// process normalizes, chunks and inserts one document. Only a missing insert
// route or cancellation stops the run; rejected sub-batches are kept as jobs.
func (o *Orchestrator) process(ctx context.Context, dest Destination, contract vector.Contract, doc fetch.Document, sum *Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := telemetry.StartSpan(ctx, "sync.document", doc.ID)
	defer span.End()

	chunks := BuildChunks(doc, o.settings.Normalize(doc.Body), o.settings.ChunkTokens, o.settings.ChunkOverlap)
	slog.DebugContext(ctx, "document chunked", "page_id", doc.ID, "title", doc.Title, "chunks", len(chunks))

	var upserted, rejected int
	for batch := range slices.Chunk(chunks, o.settings.MaxChunksPerInsert) {
		if err := ctx.Err(); err != nil {
			return err
		}

		payload, err := dest.EncodeInsert(batch)
		if err != nil {
			return fmt.Errorf("encode insert for page %s: %w", doc.ID, err)
		}

		err = dest.Submit(ctx, payload)
		switch {
		case err == nil:
			upserted += len(batch)
			o.deps.Metrics.BatchSent(outcomeUpserted, len(batch))
		case errors.Is(err, vector.ErrInsertRouteNotFound):
			o.deps.Metrics.BatchSent(outcomeFatal, len(batch))
			sum.ChunksUpserted += upserted
			sum.ChunksRejected += rejected
			span.SetError(err)
			return err
		case errors.Is(err, vector.ErrInsertRejected):
			rejected += len(batch)
			o.deps.Metrics.BatchSent(outcomeRejected, len(batch))
			slog.WarnContext(ctx, "insert rejected", "page_id", doc.ID, "chunks", len(batch), "error", err)
			o.saveJob(ctx, sum.RunID, contract, doc.ID, batch, payload, err)
		default:
			sum.ChunksUpserted += upserted
			sum.ChunksRejected += rejected
			return fmt.Errorf("insert for page %s: %w", doc.ID, err)
		}
	}

	sum.ChunksUpserted += upserted
	sum.ChunksRejected += rejected
	sum.DocumentsProcessed++
	o.deps.Metrics.DocumentProcessed()

	status := "synced"
	if rejected > 0 {
		status = "partial"
	}
	o.publish(ctx, config.TopicDocument, DocumentEvent{
		RunID:          sum.RunID,
		DocumentID:     doc.ID,
		Title:          doc.Title,
		Version:        doc.Version,
		Status:         status,
		Chunks:         len(chunks),
		ChunksUpserted: upserted,
		ChunksRejected: rejected,
		At:             time.Now().UTC(),
	})
	return nil
}

func (o *Orchestrator) saveJob(ctx context.Context, runID string, contract vector.Contract, docID string, batch []vector.Chunk, payload []byte, cause error) {
	if o.deps.Jobs == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	j := &job.Job{
		RunID:      runID,
		Variant:    string(contract.Variant),
		DocumentID: docID,
		ChunkCount: len(batch),
		Payload:    json.RawMessage(payload),
		Error:      cause.Error(),
	}
	if err := o.deps.Jobs.Save(ctx, j); err != nil {
		slog.ErrorContext(ctx, "failed to save rejected batch", "page_id", docID, "error", err)
		return
	}
	slog.InfoContext(ctx, "rejected batch stored for retry", "job_id", j.ID, "page_id", docID)
}

func (o *Orchestrator) recordStart(ctx context.Context, sum Summary) {
	if o.deps.Runs == nil {
		return
	}
	if err := o.deps.Runs.Save(ctx, &run.Run{ID: sum.RunID, Status: run.StatusRunning, Mode: o.mode()}); err != nil {
		slog.WarnContext(ctx, "failed to record run start", "error", err)
	}
}

func (o *Orchestrator) recordFinish(ctx context.Context, sum Summary, runErr error) {
	if o.deps.Runs == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()

	status := run.StatusDone
	if runErr != nil {
		status = run.StatusAborted
	}
	r := &run.Run{
		ID:                 sum.RunID,
		Status:             status,
		Variant:            sum.Variant,
		Mode:               o.mode(),
		DocumentsProcessed: sum.DocumentsProcessed,
		PagesFetched:       sum.PagesFetched,
		ChunksUpserted:     sum.ChunksUpserted,
		ChunksRejected:     sum.ChunksRejected,
		Error:              errString(runErr),
	}
	if err := o.deps.Runs.Finish(ctx, r); err != nil {
		slog.WarnContext(ctx, "failed to record run finish", "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, topic string, event any) {
	if o.deps.Publisher == nil {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal event", "topic", topic, "error", err)
		return
	}
	if err := o.deps.Publisher.Publish(topic, body); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "topic", topic, "error", err)
	}
}

func (o *Orchestrator) mode() string {
	if o.deps.Documents.ByID() {
		return "ids"
	}
	return "query"
}

// detached keeps side outputs working after the run context is cancelled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), sideOutputTimeout)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
