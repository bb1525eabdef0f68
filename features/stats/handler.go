package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"docsync/features/run"
	"docsync/internal/middleware"
)

const recentRuns = 20

type RunLister interface {
	List(ctx context.Context, limit int) ([]run.Run, error)
}

type JobCounter interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	runs RunLister
	jobs JobCounter
}

func NewHandler(r RunLister, j JobCounter) *Handler {
	return &Handler{runs: r, jobs: j}
}

type StatsResponse struct {
	FailedBatches int      `json:"failed_batches"`
	RecentRuns    int      `json:"recent_runs"`
	RecentAborted int      `json:"recent_aborted"`
	LastRun       *run.Run `json:"last_run"`
	LastSuccess   *run.Run `json:"last_success"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	slog.InfoContext(ctx, "getting stats")

	jCount, err := h.jobs.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	runs, err := h.runs.List(ctx, recentRuns)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list runs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to list runs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{FailedBatches: jCount, RecentRuns: len(runs)}
	for i := range runs {
		if i == 0 {
			resp.LastRun = &runs[i]
		}
		switch runs[i].Status {
		case run.StatusAborted:
			resp.RecentAborted++
		case run.StatusDone:
			if resp.LastSuccess == nil {
				resp.LastSuccess = &runs[i]
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
