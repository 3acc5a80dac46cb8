// Package pipeline wires the five collection stages together: query
// expansion, paginated fetching, normalization, risk classification,
// and consolidation. Data flows strictly forward; no stage reaches back
// into an earlier one.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/FranksOps/kanari/internal/classify"
	"github.com/FranksOps/kanari/internal/collect"
	"github.com/FranksOps/kanari/internal/consolidate"
	"github.com/FranksOps/kanari/internal/normalize"
	"github.com/FranksOps/kanari/internal/query"
	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/search"
	"github.com/FranksOps/kanari/internal/storage"
	"github.com/google/uuid"
)

// Precondition failures: reported before any network call is attempted.
var (
	ErrNoProvider = errors.New("pipeline: search provider is required")
	ErrNoKeywords = errors.New("pipeline: keyword list is empty")
)

// Config parameterizes one collection run. The per-variant differences
// of the old dashboard scripts (strict mode, unified brand, lookback
// depth, page depth) are all explicit flags here.
type Config struct {
	// Keywords is the comma-separated keyword string; Excluded the
	// comma-separated exclusion-term string.
	Keywords string
	Excluded string
	// Categories are fetched in declared order. Empty means all three.
	Categories []search.Category
	// Display and MaxPages bound pagination per (category, query).
	Display  int
	MaxPages int
	// LookbackDays is the consolidation window. Zero keeps everything.
	LookbackDays int
	// CleanMode additionally uses the lookback cutoff as an early-stop
	// pagination hint.
	CleanMode bool
	// UnifiedBrand collapses originating-query labels to one brand
	// label when non-empty.
	UnifiedBrand string
	// AllowedSources enables strict-source filtering when non-empty.
	AllowedSources []string
	// Concurrency caps parallel fetches; <= 1 is strictly sequential.
	Concurrency int
}

// Pipeline holds the run collaborators. Provider is required; the rest
// default sensibly.
type Pipeline struct {
	Provider   search.Provider
	Classifier *classify.Classifier
	// Archive, when set, receives every consolidated record. Archive
	// failures degrade to warnings; they never fail the run.
	Archive  storage.Backend
	Observer collect.Observer
	Logger   *slog.Logger
}

// Result is one run's best-effort output. Zero Records with empty
// Warnings is a genuine "nothing out there"; Warnings name the queries
// whose pagination failed.
type Result struct {
	RunID     string
	StartedAt time.Time
	Records   []record.Record
	Warnings  []string
	// Queried is the number of expanded queries the run issued.
	Queried int
}

// Run executes the pipeline. The output is always the union of
// everything successfully gathered; a partial fetch failure degrades
// the result, it never discards it.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Result, error) {
	if p.Provider == nil {
		return nil, ErrNoProvider
	}

	queries := query.Expand(cfg.Keywords, cfg.Excluded)
	if len(queries) == 0 {
		return nil, ErrNoKeywords
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classifier := p.Classifier
	if classifier == nil {
		classifier = classify.Default()
	}

	start := time.Now()
	res := &Result{
		RunID:     uuid.New().String(),
		StartedAt: start,
		Queried:   len(queries),
	}
	logger.Info("collection run starting", "run_id", res.RunID, "queries", len(queries))

	collectCfg := collect.Config{
		Categories:  cfg.Categories,
		Display:     cfg.Display,
		MaxPages:    cfg.MaxPages,
		Concurrency: cfg.Concurrency,
		Observer:    p.Observer,
	}
	if cfg.CleanMode && cfg.LookbackDays > 0 {
		collectCfg.Cutoff = start.AddDate(0, 0, -cfg.LookbackDays)
	}

	collector := collect.New(p.Provider, collectCfg, logger)
	collected, err := collector.Run(ctx, queries)
	if collected != nil {
		res.Warnings = collected.Warnings
	}
	if err != nil {
		// Cancellation. Hand back what we have.
		return res, err
	}

	normalizer := normalize.New(normalize.Config{UnifiedBrand: cfg.UnifiedBrand})

	records := make([]record.Record, 0, len(collected.Items))
	for _, item := range collected.Items {
		rec := normalizer.Record(item.Category, item.Raw, item.Keyword)
		rec.Risk = classifier.Classify(rec.Excerpt)
		records = append(records, rec)
	}

	res.Records = consolidate.Consolidate(records, consolidate.Config{
		LookbackDays:   cfg.LookbackDays,
		AllowedSources: cfg.AllowedSources,
		Now:            start,
	})

	if p.Archive != nil {
		for i := range res.Records {
			if err := p.Archive.Save(ctx, res.RunID, &res.Records[i]); err != nil {
				logger.Warn("archive save failed", "run_id", res.RunID, "record", res.Records[i].ID, "err", err)
				res.Warnings = append(res.Warnings, "archive: "+err.Error())
				break
			}
		}
	}

	logger.Info("collection run finished",
		"run_id", res.RunID,
		"collected", len(collected.Items),
		"kept", len(res.Records),
		"warnings", len(res.Warnings),
		"took", time.Since(start))

	return res, nil
}
