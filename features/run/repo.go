package run

import (
	"context"
	"database/sql"
)

type Repository interface {
	Save(ctx context.Context, r *Run) error
	Finish(ctx context.Context, r *Run) error
	List(ctx context.Context, limit int) ([]Run, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Save records a run as started.
func (p *PostgresRepo) Save(ctx context.Context, r *Run) error {
	if r.Status == "" {
		r.Status = StatusRunning
	}
	query := `INSERT INTO sync_runs (id, status, mode) VALUES ($1, $2, $3) RETURNING started_at`
	return p.db.QueryRowContext(ctx, query, r.ID, r.Status, r.Mode).Scan(&r.StartedAt)
}

// Finish stores the final counters and status.
func (p *PostgresRepo) Finish(ctx context.Context, r *Run) error {
	query := `UPDATE sync_runs SET status = $2, variant = $3, documents_processed = $4, pages_fetched = $5,
		chunks_upserted = $6, chunks_rejected = $7, error = $8, finished_at = NOW()
		WHERE id = $1 RETURNING finished_at`
	var finished sql.NullTime
	err := p.db.QueryRowContext(ctx, query,
		r.ID, r.Status, r.Variant, r.DocumentsProcessed, r.PagesFetched,
		r.ChunksUpserted, r.ChunksRejected, r.Error,
	).Scan(&finished)
	if err != nil {
		return err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return nil
}

func (p *PostgresRepo) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, status, variant, mode, documents_processed, pages_fetched, chunks_upserted, chunks_rejected, error, started_at, finished_at
		FROM sync_runs ORDER BY started_at DESC LIMIT $1`
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Status, &r.Variant, &r.Mode, &r.DocumentsProcessed, &r.PagesFetched,
			&r.ChunksUpserted, &r.ChunksRejected, &r.Error, &r.StartedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
