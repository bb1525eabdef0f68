// Package telemetry wraps Sentry error capture and tracing spans.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "docsync"

type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
}

// Init configures the global Sentry client. An empty DSN leaves Sentry
// disabled; every helper here is then a no-op. The returned function flushes
// pending events.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		ServerName:       serviceName,
	})
	if err != nil {
		return func() {}, err
	}

	slog.Info("sentry initialized", "environment", cfg.Environment)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// Span wraps sentry.Span so callers never deal with a nil span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s != nil && s.inner != nil {
		s.inner.Finish()
	}
}

func (s *Span) SetTag(key, value string) {
	if s != nil && s.inner != nil {
		s.inner.SetTag(key, value)
	}
}

// SetError marks the span failed and reports err.
func (s *Span) SetError(err error) {
	if s == nil || s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, op, name string) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(op, sentry.WithDescription(name))
	} else {
		span = sentry.StartSpan(ctx, op, sentry.WithTransactionName(name))
	}
	return span.Context(), &Span{inner: span}
}

func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
