package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docsync/internal/config"
	"docsync/internal/vector"
)

// ErrVariantMismatch means the destination no longer speaks the wire shape
// a stored payload was encoded for.
var ErrVariantMismatch = errors.New("destination variant changed since the batch was stored")

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Prober interface {
	Discover(ctx context.Context, baseURL string) (vector.Contract, error)
}

// Submitter posts an encoded insert body to a fixed contract.
type Submitter interface {
	Submit(ctx context.Context, payload []byte) error
}

type SubmitterFactory func(vector.Contract) Submitter

type Service struct {
	repo      Repository
	probe     Prober
	baseURL   string
	submitter SubmitterFactory
	pub       EventPublisher
}

func NewService(repo Repository, probe Prober, baseURL string, submitter SubmitterFactory, pub EventPublisher) *Service {
	return &Service{repo: repo, probe: probe, baseURL: baseURL, submitter: submitter, pub: pub}
}

func (s *Service) List(ctx context.Context) ([]Job, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Retry replays one stored batch against a freshly probed destination.
// Success removes the job; failure bumps its retry count.
func (s *Service) Retry(ctx context.Context, id string) error {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	sub, err := s.connect(ctx, j.Variant)
	if err != nil {
		return err
	}
	return s.replay(ctx, sub, j)
}

// RetryAll replays every stored batch against one probe result.
func (s *Service) RetryAll(ctx context.Context) (int, int, error) {
	jobs, err := s.repo.List(ctx)
	if err != nil {
		return 0, 0, err
	}
	if len(jobs) == 0 {
		return 0, 0, nil
	}

	contract, err := s.probe.Discover(ctx, s.baseURL)
	if err != nil {
		return 0, 0, err
	}
	sub := s.submitter(contract)

	var ok, failed int
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return ok, failed, err
		}
		j := &jobs[i]
		if j.Variant != string(contract.Variant) {
			slog.WarnContext(ctx, "skipping job encoded for another variant", "job_id", j.ID, "variant", j.Variant)
			failed++
			continue
		}
		if err := s.replay(ctx, sub, j); err != nil {
			if errors.Is(err, vector.ErrInsertRouteNotFound) {
				return ok, failed + 1, err
			}
			failed++
			continue
		}
		ok++
	}
	return ok, failed, nil
}

func (s *Service) connect(ctx context.Context, variant string) (Submitter, error) {
	contract, err := s.probe.Discover(ctx, s.baseURL)
	if err != nil {
		return nil, err
	}
	if string(contract.Variant) != variant {
		return nil, fmt.Errorf("%w: stored %s, found %s", ErrVariantMismatch, variant, contract.Variant)
	}
	return s.submitter(contract), nil
}

func (s *Service) replay(ctx context.Context, sub Submitter, j *Job) error {
	if err := sub.Submit(ctx, j.Payload); err != nil {
		slog.WarnContext(ctx, "job retry failed", "job_id", j.ID, "error", err)
		if incErr := s.repo.IncrementRetries(ctx, j.ID, err.Error()); incErr != nil {
			slog.ErrorContext(ctx, "failed to record job retry", "job_id", j.ID, "error", incErr)
		}
		return err
	}

	if err := s.repo.Delete(ctx, j.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "job retried", "job_id", j.ID, "document_id", j.DocumentID, "chunks", j.ChunkCount)
	s.publish(ctx, j)
	return nil
}

func (s *Service) publish(ctx context.Context, j *Job) {
	if s.pub == nil {
		return
	}
	body, _ := json.Marshal(map[string]any{
		"document_id": j.DocumentID,
		"run_id":      j.RunID,
		"status":      "replayed",
		"chunks":      j.ChunkCount,
		"at":          time.Now().UTC(),
	})
	if err := s.pub.Publish(config.TopicDocument, body); err != nil {
		slog.WarnContext(ctx, "failed to publish replay event", "job_id", j.ID, "error", err)
	}
}
