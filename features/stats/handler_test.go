package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docsync/features/run"
)

type MockRunLister struct{ mock.Mock }

func (m *MockRunLister) List(ctx context.Context, limit int) ([]run.Run, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]run.Run), args.Error(1)
}

type MockJobCounter struct{ mock.Mock }

func (m *MockJobCounter) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestHandler_GetStats_Table(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	history := []run.Run{
		{ID: "r3", Status: run.StatusAborted, StartedAt: now},
		{ID: "r2", Status: run.StatusDone, StartedAt: now.Add(-time.Hour)},
		{ID: "r1", Status: run.StatusDone, StartedAt: now.Add(-2 * time.Hour)},
	}

	tests := []struct {
		name       string
		setupMocks func(*MockRunLister, *MockJobCounter)
		wantStatus int
		checkBody  func(*testing.T, map[string]interface{})
	}{
		{
			name: "Success",
			setupMocks: func(r *MockRunLister, j *MockJobCounter) {
				j.On("Count", mock.Anything).Return(4, nil)
				r.On("List", mock.Anything, recentRuns).Return(history, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.EqualValues(t, 4, data["failed_batches"])
				assert.EqualValues(t, 3, data["recent_runs"])
				assert.EqualValues(t, 1, data["recent_aborted"])
				assert.Equal(t, "r3", data["last_run"].(map[string]interface{})["id"])
				assert.Equal(t, "r2", data["last_success"].(map[string]interface{})["id"])
			},
		},
		{
			name: "No runs yet",
			setupMocks: func(r *MockRunLister, j *MockJobCounter) {
				j.On("Count", mock.Anything).Return(0, nil)
				r.On("List", mock.Anything, recentRuns).Return([]run.Run{}, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.Nil(t, data["last_run"])
				assert.Nil(t, data["last_success"])
			},
		},
		{
			name: "Job count error",
			setupMocks: func(r *MockRunLister, j *MockJobCounter) {
				j.On("Count", mock.Anything).Return(0, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "INTERNAL_ERROR", body["error"].(map[string]interface{})["code"])
			},
		},
		{
			name: "Run list error",
			setupMocks: func(r *MockRunLister, j *MockJobCounter) {
				j.On("Count", mock.Anything).Return(1, nil)
				r.On("List", mock.Anything, recentRuns).Return(nil, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "failed to list runs", body["error"].(map[string]interface{})["message"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := new(MockRunLister)
			jobs := new(MockJobCounter)
			tt.setupMocks(runs, jobs)

			h := NewHandler(runs, jobs)
			w := httptest.NewRecorder()
			h.GetStats(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			tt.checkBody(t, body)
		})
	}
}
