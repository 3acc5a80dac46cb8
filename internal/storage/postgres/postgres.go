package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS mentions (
	run_id TEXT NOT NULL,
	id TEXT NOT NULL,
	posted_at TIMESTAMPTZ,
	source TEXT NOT NULL,
	source_raw TEXT,
	title TEXT NOT NULL,
	excerpt TEXT,
	link TEXT,
	query TEXT,
	risk_level INTEGER NOT NULL,
	risk_reason TEXT,
	PRIMARY KEY (run_id, id)
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create archive pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping archive: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, runID string, rec *record.Record) error {
	var postedAt *time.Time
	if rec.Timestamp.Known {
		postedAt = &rec.Timestamp.Time
	}

	query := `
	INSERT INTO mentions (
		run_id, id, posted_at, source, source_raw, title, excerpt, link, query, risk_level, risk_reason
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (run_id, id) DO NOTHING
	`

	_, err := b.pool.Exec(ctx, query,
		runID,
		rec.ID,
		postedAt,
		rec.Source,
		rec.SourceRaw,
		rec.Title,
		rec.Excerpt,
		rec.Link,
		rec.Query,
		int(rec.Risk.Level),
		rec.Risk.Reason,
	)

	if err != nil {
		return fmt.Errorf("archive record %s: %w", rec.ID, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*record.Record, error) {
	query := `SELECT id, posted_at, source, source_raw, title, excerpt, link, query, risk_level, risk_reason FROM mentions WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, paramCount)
		args = append(args, filter.Source)
		paramCount++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(` AND query = $%d`, paramCount)
		args = append(args, filter.Query)
		paramCount++
	}
	if filter.Flagged != nil {
		if *filter.Flagged {
			query += ` AND risk_level > 0`
		} else {
			query += ` AND risk_level = 0`
		}
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND posted_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY posted_at DESC NULLS FIRST`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var results []*record.Record
	for rows.Next() {
		var r record.Record
		var postedAt *time.Time
		var level int

		err := rows.Scan(
			&r.ID, &postedAt, &r.Source, &r.SourceRaw, &r.Title, &r.Excerpt,
			&r.Link, &r.Query, &level, &r.Risk.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}

		if postedAt != nil {
			r.Timestamp = record.At(*postedAt)
		}
		r.Risk.Level = record.Level(level)

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
