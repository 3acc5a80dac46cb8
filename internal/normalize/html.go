package normalize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanHTML strips markup and decodes entities from a fragment the
// service returned (titles arrive as e.g. `<b>brand</b> &quot;issue&quot;`).
// Running the fragment through a real parser covers the usual four
// entities and everything else, instead of a chain of string replaces.
// If the fragment somehow fails to parse it is returned as-is, trimmed.
func CleanHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}
