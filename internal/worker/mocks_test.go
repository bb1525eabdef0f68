package worker_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/stretchr/testify/mock"

	"docsync/features/job"
	"docsync/features/run"
	"docsync/internal/fetch"
	"docsync/internal/vector"
	"docsync/internal/worker"
)

type MockProber struct{ mock.Mock }

func (m *MockProber) Discover(ctx context.Context, baseURL string) (vector.Contract, error) {
	args := m.Called(ctx, baseURL)
	return args.Get(0).(vector.Contract), args.Error(1)
}

type MockDestination struct{ mock.Mock }

func (m *MockDestination) Register(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockDestination) EncodeInsert(chunks []vector.Chunk) ([]byte, error) {
	args := m.Called(chunks)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDestination) Submit(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

type MockJobStore struct{ mock.Mock }

func (m *MockJobStore) Save(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

type MockRunRecorder struct{ mock.Mock }

func (m *MockRunRecorder) Save(ctx context.Context, r *run.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockRunRecorder) Finish(ctx context.Context, r *run.Run) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

type published struct {
	topic string
	body  []byte
}

type recordingPublisher struct {
	events []published
}

func (p *recordingPublisher) Publish(topic string, body []byte) error {
	p.events = append(p.events, published{topic: topic, body: body})
	return nil
}

func (p *recordingPublisher) topics() []string {
	var out []string
	for _, e := range p.events {
		out = append(out, e.topic)
	}
	return out
}

// memorySource serves documents from a slice, in search order.
type memorySource struct {
	docs      []fetch.Document
	searchErr error
	searches  int
}

func (s *memorySource) SearchPages(ctx context.Context, query string, start, limit int) ([]fetch.Document, error) {
	s.searches++
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if start >= len(s.docs) {
		return nil, nil
	}
	return s.docs[start:min(len(s.docs), start+limit)], nil
}

func (s *memorySource) GetPage(ctx context.Context, id string) (fetch.Document, error) {
	for _, d := range s.docs {
		if d.ID == id {
			return d, nil
		}
	}
	return fetch.Document{}, fmt.Errorf("page %s not found", id)
}

var dashContract = vector.Contract{
	Variant:     vector.VariantDash,
	RegisterURL: "http://vector/v1/vector-dbs",
	InsertURL:   "http://vector/v1/vector-io/insert",
}

func page(id string, words int) fetch.Document {
	return fetch.Document{
		ID:       id,
		Title:    "Page " + id,
		Body:     "<h1>Page " + id + "</h1><p>" + strings.Repeat("lorem ipsum ", words) + "</p>",
		Version:  3,
		SpaceKey: "OPS",
		Labels:   []string{"runbook"},
		URL:      "https://example.atlassian.net/wiki/rest/api/content/" + id,
	}
}

func factory(dest *MockDestination) worker.DestinationFactory {
	return func(vector.Contract) worker.Destination { return dest }
}
