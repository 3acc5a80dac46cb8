// Package query turns user-supplied keyword and exclusion strings into
// concrete search queries.
package query

import "strings"

// Query pairs the original keyword with the full query text sent to the
// search service. Keyword is kept for provenance; downstream records
// carry it as their originating query.
type Query struct {
	Keyword string
	Text    string
}

// Expand splits keywords and excluded on commas, trims tokens, and
// builds one query per keyword with every exclusion appended in the
// service's negation syntax ("keyword -term1 -term2"). Order is
// preserved and repeated keywords are not deduplicated; the
// consolidator absorbs any resulting duplicates. An empty keyword
// string yields an empty slice, which the collector treats as nothing
// to do.
func Expand(keywords, excluded string) []Query {
	kws := splitTokens(keywords)
	if len(kws) == 0 {
		return nil
	}

	exclusions := splitTokens(excluded)

	queries := make([]Query, 0, len(kws))
	for _, kw := range kws {
		var b strings.Builder
		b.WriteString(kw)
		for _, ex := range exclusions {
			b.WriteString(" -")
			b.WriteString(ex)
		}
		queries = append(queries, Query{Keyword: kw, Text: b.String()})
	}
	return queries
}

// splitTokens splits on commas, trims whitespace, and drops empties.
func splitTokens(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}
