package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docsync/features/job"
	"docsync/features/run"
	"docsync/features/stats"
	"docsync/internal/adapter/confluence"
	"docsync/internal/config"
	"docsync/internal/fetch"
	"docsync/internal/metrics"
	"docsync/internal/middleware"
	"docsync/internal/vector"
	"docsync/internal/worker"
)

// ErrDatabaseDisabled is returned by features that need the run ledger.
var ErrDatabaseDisabled = errors.New("database is disabled, set DB_ENABLED=true")

// App wires configuration and infrastructure into runnable operations.
type App struct {
	cfg  *config.Config
	deps *Dependencies
	http *http.Client
}

func New(cfg *config.Config, deps *Dependencies) *App {
	if deps == nil {
		deps = &Dependencies{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &App{cfg: cfg, deps: deps, http: middleware.NewHTTPClient()}
}

// Sync runs one incremental sync and pushes metrics when a gateway is set.
func (a *App) Sync(ctx context.Context) (worker.Summary, error) {
	aborted := worker.Summary{State: worker.StateAborted}
	if err := a.cfg.ValidateVector(); err != nil {
		return aborted, err
	}
	if err := a.cfg.ValidateSource(); err != nil {
		return aborted, err
	}

	src := a.confluence()
	opts := fetch.Options{PageIDs: a.cfg.FilterPageIDs, PageSize: a.cfg.SourcePageSize}
	if len(opts.PageIDs) == 0 {
		// Space names are looked up on first iteration, after the probe.
		opts.Resolve = func(ctx context.Context) (fetch.Query, error) {
			return a.query(ctx, src)
		}
	}

	deps := worker.Deps{
		Probe:       a.probe(),
		Destination: func(c vector.Contract) worker.Destination { return a.destination(c) },
		Documents:   fetch.NewFetcher(src, opts),
		Metrics:     a.deps.Metrics,
	}
	if a.deps.DB != nil {
		deps.Runs = run.NewPostgresRepo(a.deps.DB)
		deps.Jobs = job.NewPostgresRepo(a.deps.DB)
	}
	if a.deps.Producer != nil {
		deps.Publisher = a.deps.Producer
	}

	sum, err := worker.NewOrchestrator(deps, worker.Settings{
		BaseURL:            a.cfg.VectorAPIBaseURL(),
		ChunkTokens:        a.cfg.ChunkTokens,
		ChunkOverlap:       a.cfg.ChunkOverlap,
		MaxChunksPerInsert: a.cfg.MaxChunksPerInsert,
	}).Run(ctx)

	if a.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if perr := a.deps.Metrics.Push(pushCtx, a.cfg.PushgatewayURL, sum.RunID); perr != nil {
			slog.WarnContext(ctx, "failed to push metrics", "error", perr)
		}
	}
	return sum, err
}

// Probe discovers the destination contract without syncing.
func (a *App) Probe(ctx context.Context) (vector.Contract, error) {
	if err := a.cfg.ValidateVector(); err != nil {
		return vector.Contract{}, err
	}
	return a.probe().Discover(ctx, a.cfg.VectorAPIBaseURL())
}

func (a *App) Jobs() (*job.Service, error) {
	if a.deps.DB == nil {
		return nil, ErrDatabaseDisabled
	}
	if err := a.cfg.ValidateVector(); err != nil {
		return nil, err
	}

	var pub job.EventPublisher
	if a.deps.Producer != nil {
		pub = a.deps.Producer
	}
	submitter := func(c vector.Contract) job.Submitter { return a.destination(c) }
	return job.NewService(job.NewPostgresRepo(a.deps.DB), a.probe(), a.cfg.VectorAPIBaseURL(), submitter, pub), nil
}

func (a *App) Runs() (run.Repository, error) {
	if a.deps.DB == nil {
		return nil, ErrDatabaseDisabled
	}
	return run.NewPostgresRepo(a.deps.DB), nil
}

// Handler exposes the admin API over the run ledger and failed batches.
func (a *App) Handler() (http.Handler, error) {
	jobs, err := a.Jobs()
	if err != nil {
		return nil, err
	}
	runs, err := a.Runs()
	if err != nil {
		return nil, err
	}

	jobHandler := job.NewHandler(jobs)
	runHandler := run.NewHandler(runs)
	statsHandler := stats.NewHandler(runs, job.NewPostgresRepo(a.deps.DB))

	mux := http.NewServeMux()
	mux.Handle("GET /jobs", middleware.CorrelationID(http.HandlerFunc(jobHandler.List)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(http.HandlerFunc(jobHandler.Retry)))
	mux.Handle("GET /runs", middleware.CorrelationID(http.HandlerFunc(runHandler.List)))
	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(a.deps.Metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	return mux, nil
}

// Serve runs the admin API until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", a.cfg.HTTPAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) probe() *vector.Probe {
	return vector.NewProbe(a.http, a.cfg.OpenAPIPath, a.cfg.ProbeTimeout())
}

func (a *App) destination(c vector.Contract) *vector.Client {
	return vector.NewClient(a.http, c, vector.Collection{
		ID:             a.cfg.CollectionID,
		EmbeddingModel: a.cfg.EmbeddingModelID,
		Provider:       a.cfg.VectorDBProvider,
		Vectorizer:     a.cfg.WeaviateVectorizer,
	}, a.cfg.RegisterTimeout(), a.cfg.InsertTimeout())
}

func (a *App) confluence() *confluence.Client {
	return confluence.NewClient(a.http, confluence.Config{
		CloudID:       a.cfg.ConfCloudID,
		BaseURL:       a.cfg.ConfBaseURL,
		User:          a.cfg.ConfUser,
		APIToken:      a.cfg.ConfAPIToken,
		AccessToken:   a.cfg.ConfAccessToken,
		RatePerSecond: a.cfg.SourceRate,
		Timeout:       a.cfg.FetchTimeout(),
	})
}

// query builds the search filter, turning configured space names into keys.
func (a *App) query(ctx context.Context, src *confluence.Client) (fetch.Query, error) {
	keys := append([]string(nil), a.cfg.FilterSpaceKeys...)
	if len(a.cfg.FilterSpaceNames) > 0 {
		resolved, err := src.ResolveSpaceKeys(ctx, a.cfg.FilterSpaceNames)
		switch {
		case errors.Is(err, confluence.ErrSpaceNotFound):
			return fetch.Query{}, fmt.Errorf("%w: FILTER_SPACE_NAMES: %v", config.ErrInvalid, err)
		case ctx.Err() != nil:
			return fetch.Query{}, ctx.Err()
		case err != nil:
			return fetch.Query{}, fmt.Errorf("%w: resolve space names: %v", fetch.ErrSourceUnavailable, err)
		}
		keys = append(keys, resolved...)
	}

	return fetch.Query{
		SinceHours: a.cfg.SinceHours,
		SpaceKeys:  keys,
		Labels:     a.cfg.FilterLabels,
		AncestorID: a.cfg.FilterFolderID,
	}, nil
}
