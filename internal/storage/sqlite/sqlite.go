package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

// posted_at is NULL for unknown-timestamp records; the sentinel is
// preserved across a round trip, not defaulted.
const schema = `
CREATE TABLE IF NOT EXISTS mentions (
	run_id TEXT NOT NULL,
	id TEXT NOT NULL,
	posted_at DATETIME,
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

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply archive schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, runID string, rec *record.Record) error {
	var postedAt any
	if rec.Timestamp.Known {
		postedAt = rec.Timestamp.Time
	}

	query := `
	INSERT OR REPLACE INTO mentions (
		run_id, id, posted_at, source, source_raw, title, excerpt, link, query, risk_level, risk_reason
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
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

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*record.Record, error) {
	query := `SELECT id, posted_at, source, source_raw, title, excerpt, link, query, risk_level, risk_reason FROM mentions WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.Flagged != nil {
		if *filter.Flagged {
			query += ` AND risk_level > 0`
		} else {
			query += ` AND risk_level = 0`
		}
	}
	if filter.Since != nil {
		query += ` AND posted_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY posted_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires LIMIT before OFFSET; -1 means no limit.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var results []*record.Record
	for rows.Next() {
		var r record.Record
		var postedAt sql.NullTime
		var level int

		err := rows.Scan(
			&r.ID, &postedAt, &r.Source, &r.SourceRaw, &r.Title, &r.Excerpt,
			&r.Link, &r.Query, &level, &r.Risk.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}

		if postedAt.Valid {
			r.Timestamp = record.At(postedAt.Time)
		}
		r.Risk.Level = record.Level(level)

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
