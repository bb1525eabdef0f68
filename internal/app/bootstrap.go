package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"

	"docsync/internal/config"
	"docsync/internal/metrics"
	"docsync/internal/telemetry"
)

// Version is stamped at build time.
var Version = "dev"

// Dependencies is the optional infrastructure of one process. DB and
// Producer stay nil when their settings are empty.
type Dependencies struct {
	DB       *sql.DB
	Producer *nsq.Producer
	Metrics  *metrics.Metrics

	flush func()
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{Metrics: metrics.New(), flush: func() {}}

	flush, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     Version,
	})
	if err != nil {
		slog.Warn("sentry disabled", "error", err)
	} else {
		deps.flush = flush
	}

	if cfg.DBEnabled {
		db, err := OpenDatabase(ctx, cfg)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.DB = db
	}

	if cfg.NSQDHost != "" {
		producer, err := nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
		producer.SetLogger(nil, nsq.LogLevelError)
		deps.Producer = producer
	}

	return deps, nil
}

// OpenDatabase connects with retry and applies pending migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	if err := PingWithRetry(ctx, db, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if err := Migrate(db, cfg.MigrationPath); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("migrations applied", "path", cfg.MigrationPath)
	return db, nil
}

func Migrate(db *sql.DB, path string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(path, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up error: %w", err)
	}
	return nil
}

// PingWithRetry pings until success, the attempts run out, or ctx ends.
func PingWithRetry(ctx context.Context, p Pinger, attempts int, delay time.Duration) error {
	attempts = max(1, attempts)

	var err error
	for i := 0; i < attempts; i++ {
		if err = p.PingContext(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", attempts)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

func (d *Dependencies) Close() {
	if d.Producer != nil {
		d.Producer.Stop()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
	if d.flush != nil {
		d.flush()
	}
}
