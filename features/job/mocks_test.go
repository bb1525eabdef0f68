package job_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docsync/features/job"
	"docsync/internal/vector"
)

// MockRepo implements job.Repository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}
func (m *MockRepo) List(ctx context.Context) ([]job.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]job.Job), args.Error(1)
}
func (m *MockRepo) Get(ctx context.Context, id string) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}
func (m *MockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockRepo) IncrementRetries(ctx context.Context, id, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}
func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

type MockProber struct {
	mock.Mock
}

func (m *MockProber) Discover(ctx context.Context, baseURL string) (vector.Contract, error) {
	args := m.Called(ctx, baseURL)
	return args.Get(0).(vector.Contract), args.Error(1)
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func factory(s *MockSubmitter) job.SubmitterFactory {
	return func(vector.Contract) job.Submitter { return s }
}

var dashContract = vector.Contract{
	Variant:     vector.VariantDash,
	RegisterURL: "http://vector/v1/vector-dbs",
	InsertURL:   "http://vector/v1/vector-io/insert",
}
