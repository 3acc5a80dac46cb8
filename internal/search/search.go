// Package search defines the contract with the external search service
// and the HTTP client that implements it.
package search

import "context"

// Category selects a search vertical. Each vertical returns a slightly
// different raw record shape: Blog carries postdate, Cafe carries an
// origin label and usually no date, News carries an RFC-1123 pubDate.
type Category string

const (
	CategoryBlog Category = "blog"
	CategoryCafe Category = "cafearticle"
	CategoryNews Category = "news"
)

// Valid reports whether c is one of the known verticals.
func (c Category) Valid() bool {
	switch c {
	case CategoryBlog, CategoryCafe, CategoryNews:
		return true
	}
	return false
}

// MaxDisplay is the largest page size the service accepts per call.
const MaxDisplay = 100

// RawRecord is one item as returned by the service, before
// normalization. Title and Description arrive HTML-tagged and
// entity-encoded. Which date and origin fields are populated depends on
// the category.
type RawRecord struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	PostDate    string `json:"postdate,omitempty"` // 8-digit YYYYMMDD, often absent
	PubDate     string `json:"pubDate,omitempty"`  // RFC-1123, news only
	CafeName    string `json:"cafename,omitempty"` // free-text origin label, cafe only
	CafeURL     string `json:"cafeurl,omitempty"`
}

// Result is one page of search results. Total is the service's estimate
// of all matches, not the number of items in this page.
type Result struct {
	Items []RawRecord `json:"items"`
	Total int         `json:"total"`
}

// Provider abstracts the external search service. Implementations must
// request results sorted newest-first; start is 1-based and display is
// capped at MaxDisplay. A Provider may fail or return an empty Result,
// and the caller is expected to treat either as terminal for that one
// query only.
type Provider interface {
	Search(ctx context.Context, category Category, query string, start, display int) (*Result, error)
}
