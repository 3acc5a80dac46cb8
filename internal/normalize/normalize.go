// Package normalize maps the category-specific raw result shapes into
// the canonical record schema. Normalization is pure and idempotent:
// the same raw record always yields the same canonical record,
// including its ID.
package normalize

import (
	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/search"
	"github.com/google/uuid"
)

// Config selects normalizer modes.
type Config struct {
	// UnifiedBrand, when non-empty, collapses every record's
	// originating-query label to this single brand label ("unified"
	// mode). Otherwise the expanded keyword is carried through.
	UnifiedBrand string
}

// Normalizer converts raw search results into canonical records.
type Normalizer struct {
	cfg Config
}

// New creates a Normalizer.
func New(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg}
}

// Record normalizes one raw result. keyword is the expanded keyword
// that produced it.
func (n *Normalizer) Record(category search.Category, raw search.RawRecord, keyword string) record.Record {
	rec := record.Record{
		ID:      stableID(raw),
		Title:   CleanHTML(raw.Title),
		Excerpt: CleanHTML(raw.Description),
		Link:    raw.Link,
		Query:   keyword,
	}

	if n.cfg.UnifiedBrand != "" {
		rec.Query = n.cfg.UnifiedBrand
	}

	rec.Timestamp = Timestamp(category, raw)

	switch category {
	case search.CategoryNews:
		rec.Source = SourceNews
	case search.CategoryBlog:
		rec.Source = SourceBlog
	default: // cafe and any future origin-labelled vertical
		rec.Source = classifySource(raw.CafeName)
		if rec.Source == record.SourceOther {
			rec.SourceRaw = raw.CafeName
		}
	}

	return rec
}

// stableID derives a deterministic record ID from the origin link (or,
// lacking one, the raw title), so re-normalizing the same raw record
// never mints a new identity.
func stableID(raw search.RawRecord) string {
	seed := raw.Link
	if seed == "" {
		seed = raw.Title
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}
