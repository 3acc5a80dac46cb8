// Package collect paginates the external search service across every
// (category, query) pair and yields the flat raw item stream the
// normalizer consumes.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/kanari/internal/metrics"
	"github.com/FranksOps/kanari/internal/normalize"
	"github.com/FranksOps/kanari/internal/query"
	"github.com/FranksOps/kanari/internal/search"
	"golang.org/x/sync/errgroup"
)

// Observer receives progress events as pagination advances. It is an
// observational side channel for UI feedback, not part of the data
// contract; a nil observer is fine.
type Observer func(category search.Category, queryText string, offset int)

// Config parameterizes a collection run.
type Config struct {
	// Categories are processed in the declared order.
	Categories []search.Category
	// Display is the page size requested per call, clamped to the
	// service maximum. Default search.MaxDisplay.
	Display int
	// MaxPages bounds pagination depth per (category, query). This is a
	// best-effort bound, not a completeness guarantee. Default 3.
	MaxPages int
	// Cutoff, when non-zero, enables "clean" mode: items older than the
	// cutoff are dropped individually, and pagination for a query stops
	// early once an entire page is stale. Newest-first ordering is a
	// hint, not a guarantee, so a partially stale page never terminates
	// pagination by itself.
	Cutoff time.Time
	// Concurrency caps parallel (category, query) fetches. Values <= 1
	// keep the reference behavior: strictly sequential.
	Concurrency int
	// Observer receives progress events. Optional.
	Observer Observer
}

// Item is one raw result tagged with its provenance.
type Item struct {
	Category search.Category
	Keyword  string
	Raw      search.RawRecord
}

// Result is the flat item stream plus per-query failure warnings. Zero
// items with zero warnings is a clean empty result; zero items with
// warnings means the run was degraded, and the two must stay
// distinguishable for the presentation layer.
type Result struct {
	Items    []Item
	Warnings []string
}

// Collector drives pagination against a search Provider.
type Collector struct {
	provider search.Provider
	cfg      Config
	logger   *slog.Logger
}

// New creates a Collector. A nil logger falls back to slog.Default().
func New(provider search.Provider, cfg Config, logger *slog.Logger) *Collector {
	if cfg.Display < 1 || cfg.Display > search.MaxDisplay {
		cfg.Display = search.MaxDisplay
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 3
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = []search.Category{search.CategoryBlog, search.CategoryCafe, search.CategoryNews}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{provider: provider, cfg: cfg, logger: logger}
}

// task is one (category, query) unit of pagination.
type task struct {
	category search.Category
	q        query.Query
}

// Run paginates every (category, query) pair. A fetch failure aborts
// only that pair's remaining pages and is recorded as a warning;
// everything already collected is preserved. The returned error is
// non-nil only for cancellation, and even then the partial Result is
// valid best-effort output.
func (c *Collector) Run(ctx context.Context, queries []query.Query) (*Result, error) {
	var tasks []task
	for _, cat := range c.cfg.Categories {
		for _, q := range queries {
			tasks = append(tasks, task{category: cat, q: q})
		}
	}

	// Per-task slots keep output ordering deterministic regardless of
	// the concurrency setting.
	items := make([][]Item, len(tasks))
	warnings := make([]string, len(tasks))

	if c.cfg.Concurrency > 1 {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(c.cfg.Concurrency)
		for i, t := range tasks {
			g.Go(func() error {
				items[i], warnings[i] = c.fetchQuery(gCtx, t)
				return gCtx.Err()
			})
		}
		if err := g.Wait(); err != nil {
			return flatten(items, warnings), err
		}
	} else {
		for i, t := range tasks {
			if err := ctx.Err(); err != nil {
				return flatten(items, warnings), err
			}
			items[i], warnings[i] = c.fetchQuery(ctx, t)
		}
	}

	return flatten(items, warnings), nil
}

// fetchQuery pages through one (category, query) pair until a stop
// condition: empty page, short page, page cap, whole-page staleness in
// clean mode, or a failure.
func (c *Collector) fetchQuery(ctx context.Context, t task) ([]Item, string) {
	var collected []Item

	for page := 0; page < c.cfg.MaxPages; page++ {
		// Cancellation is checked between calls, not mid-call; the
		// individual search call is atomic.
		if ctx.Err() != nil {
			return collected, ""
		}

		offset := 1 + page*c.cfg.Display
		if c.cfg.Observer != nil {
			c.cfg.Observer(t.category, t.q.Text, offset)
		}

		res, err := c.provider.Search(ctx, t.category, t.q.Text, offset, c.cfg.Display)
		if err != nil {
			// Terminal for this query's remaining pages only.
			c.logger.Warn("query fetch failed",
				"category", t.category, "query", t.q.Text, "offset", offset, "err", err)
			metrics.QueriesFailedTotal.WithLabelValues(string(t.category)).Inc()
			return collected, fmt.Sprintf("fetch failed for %s query %q at offset %d: %v", t.category, t.q.Text, offset, err)
		}

		if len(res.Items) == 0 {
			break
		}

		allStale := !c.cfg.Cutoff.IsZero()
		for _, raw := range res.Items {
			if !c.cfg.Cutoff.IsZero() {
				ts := normalize.Timestamp(t.category, raw)
				if ts.Known && ts.Time.Before(c.cfg.Cutoff) {
					// Stale items are dropped one by one; an unknown
					// date never counts as stale.
					continue
				}
				allStale = false
			}
			collected = append(collected, Item{Category: t.category, Keyword: t.q.Keyword, Raw: raw})
		}

		if len(res.Items) < c.cfg.Display {
			// Short page signals end of results.
			break
		}
		if allStale {
			break
		}
	}

	return collected, ""
}

func flatten(items [][]Item, warnings []string) *Result {
	res := &Result{}
	for _, batch := range items {
		res.Items = append(res.Items, batch...)
	}
	for _, w := range warnings {
		if w != "" {
			res.Warnings = append(res.Warnings, w)
		}
	}
	return res
}
