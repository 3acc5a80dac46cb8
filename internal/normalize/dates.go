package normalize

import (
	"time"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/search"
)

// The blog and cafe verticals timestamp posts with a bare 8-digit date.
const postDateLayout = "20060102"

// Timestamp extracts the record timestamp from whichever date field the
// category populates. The collector shares this for its recency-cutoff
// hint so fetch-time and normalize-time never disagree about a record's
// age.
func Timestamp(category search.Category, raw search.RawRecord) record.Timestamp {
	if category == search.CategoryNews {
		return parsePubDate(raw.PubDate)
	}
	return parsePostDate(raw.PostDate)
}

// parsePostDate parses the 8-digit YYYYMMDD form. Absent or unparsable
// input yields the Unknown sentinel; the current wall clock is never
// substituted for "we don't know".
func parsePostDate(s string) record.Timestamp {
	if len(s) != 8 {
		return record.Unknown()
	}
	t, err := time.Parse(postDateLayout, s)
	if err != nil {
		return record.Unknown()
	}
	return record.At(t)
}

// parsePubDate parses the news vertical's RFC-1123 date-time, with and
// without a numeric zone.
func parsePubDate(s string) record.Timestamp {
	if s == "" {
		return record.Unknown()
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, s); err == nil {
			return record.At(t)
		}
	}
	return record.Unknown()
}
