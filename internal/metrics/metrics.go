package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "docsync"
	jobName   = "docsync_sync"
)

// Metrics holds the collectors for one process. Each instance owns its
// registry, so tests can create as many as they like.
type Metrics struct {
	registry      *prometheus.Registry
	documents     prometheus.Counter
	chunks        *prometheus.CounterVec
	batches       *prometheus.CounterVec
	fetchRequests prometheus.Counter
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastSuccess   prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents fully processed.",
		}),
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Chunks sent to the destination by outcome.",
		}, []string{"outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "insert_batches_total",
			Help:      "Insert sub-batches by outcome.",
		}, []string{"outcome"}),
		fetchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Source fetch calls issued.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Sync runs by final state and variant.",
		}, []string{"state", "variant"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a sync run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that finished done.",
		}),
	}
	m.registry.MustRegister(m.documents, m.chunks, m.batches, m.fetchRequests, m.runs, m.runDuration, m.lastSuccess)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) DocumentProcessed() {
	if m == nil {
		return
	}
	m.documents.Inc()
}

// BatchSent records one sub-batch outcome: "upserted", "rejected" or "fatal".
func (m *Metrics) BatchSent(outcome string, chunks int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
	m.chunks.WithLabelValues(outcome).Add(float64(chunks))
}

func (m *Metrics) RunFinished(state, variant string, fetchRequests int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchRequests.Add(float64(fetchRequests))
	m.runs.WithLabelValues(state, variant).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	if state == "done" {
		m.lastSuccess.SetToCurrentTime()
	}
}

// Push sends the registry to a Pushgateway, grouped by run id.
func (m *Metrics) Push(ctx context.Context, gatewayURL, runID string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	return push.New(gatewayURL, jobName).
		Gatherer(m.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
}
