// Package consolidate merges every query's and category's records into
// one globally ordered, deduplicated result set.
//
// Unknown-timestamp policy, applied uniformly: an unknown timestamp
// sorts as the run-start instant (so those records surface at the top
// of a newest-first feed) and is exempt from the lookback filter:
// "too new to have a reliable date" rather than "too old to keep". The
// record's own Timestamp field is never rewritten.
package consolidate

import (
	"sort"
	"time"

	"github.com/FranksOps/kanari/internal/record"
)

// Config parameterizes one consolidation pass.
type Config struct {
	// LookbackDays drops records with a known timestamp older than
	// Now − LookbackDays. Zero disables the window filter.
	LookbackDays int
	// AllowedSources, when non-empty, enables strict mode: only records
	// whose canonical source label is listed survive. Other records are
	// dropped outright, not hidden.
	AllowedSources []string
	// Now anchors the window filter and the unknown-timestamp sort key.
	// The pipeline passes its run-start instant; zero falls back to the
	// wall clock.
	Now time.Time
}

// Consolidate filters, globally sorts (newest first), and deduplicates
// records. Records are never grouped by query or category before
// sorting: a record from any query outranks any other purely by sort
// key. Dedup keeps, per normalized title, the record with the greatest
// sort key; ties keep the earliest record under the stable sort order.
func Consolidate(records []record.Record, cfg Config) []record.Record {
	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}

	kept := make([]record.Record, 0, len(records))
	if cfg.LookbackDays > 0 {
		cutoff := now.AddDate(0, 0, -cfg.LookbackDays)
		for _, rec := range records {
			if rec.Timestamp.Known && rec.Timestamp.Time.Before(cutoff) {
				continue
			}
			kept = append(kept, rec)
		}
	} else {
		kept = append(kept, records...)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return sortKey(kept[i], now).After(sortKey(kept[j], now))
	})

	// Dedup after the sort: the first occurrence per title is, by the
	// order just established, the most recent one.
	seen := make(map[string]struct{}, len(kept))
	deduped := kept[:0]
	for _, rec := range kept {
		key := rec.NormalizedTitle()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, rec)
	}

	if len(cfg.AllowedSources) == 0 {
		return deduped
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedSources))
	for _, s := range cfg.AllowedSources {
		allowed[s] = struct{}{}
	}

	strict := deduped[:0]
	for _, rec := range deduped {
		if _, ok := allowed[rec.Source]; ok {
			strict = append(strict, rec)
		}
	}
	return strict
}

// sortKey is the single total order over all records: the known
// timestamp, or the run-start instant for unknown ones.
func sortKey(rec record.Record, now time.Time) time.Time {
	if rec.Timestamp.Known {
		return rec.Timestamp.Time
	}
	return now
}
