// Package storage defines the optional run-archive sink. The archive
// is write-only from the pipeline's point of view: a run never reads
// prior runs back, every invocation re-collects from scratch. Query
// exists for offline inspection of archived runs.
package storage

import (
	"context"
	"time"

	"github.com/FranksOps/kanari/internal/record"
)

// Filter allows querying archived records.
type Filter struct {
	RunID   string
	Source  string
	Query   string
	Flagged *bool
	Since   *time.Time // posted-at lower bound; excludes unknown-date records
	Limit   int
	Offset  int
}

// Backend defines the interface for archiving and querying consolidated
// records.
type Backend interface {
	Save(ctx context.Context, runID string, rec *record.Record) error
	Query(ctx context.Context, filter Filter) ([]*record.Record, error)
	Close() error
}
