package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type key int

const CorrelationKey key = 0

// CorrelationHeader carries the run id on every outbound request.
const CorrelationHeader = "X-Correlation-ID"

// CorrelationID tags each admin request with the caller's correlation id,
// or a fresh one.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationHeader)
		if id == "" {
			id = uuid.New().String()
		}

		ctx := WithCorrelationID(r.Context(), id)
		w.Header().Set(CorrelationHeader, id)

		slog.InfoContext(ctx, "request received", "method", r.Method, "path", r.URL.Path)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		slog.InfoContext(ctx, "request completed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// CorrelationTransport stamps the context's correlation id onto outgoing
// requests. A nil Base uses http.DefaultTransport.
type CorrelationTransport struct {
	Base http.RoundTripper
}

func (t *CorrelationTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	id, ok := req.Context().Value(CorrelationKey).(string)
	if !ok || id == "" || req.Header.Get(CorrelationHeader) != "" {
		return base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	clone.Header.Set(CorrelationHeader, id)
	return base.RoundTrip(clone)
}

// NewHTTPClient returns a client whose requests carry the correlation id.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: &CorrelationTransport{}}
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationKey).(string); ok {
		return id
	}
	return "unknown"
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationKey, id)
}
