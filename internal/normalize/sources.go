package normalize

import (
	"strings"

	"github.com/FranksOps/kanari/internal/record"
)

// Fixed labels for verticals that carry no meaningful origin label of
// their own.
const (
	SourceBlog = "Naver Blog"
	SourceNews = "Naver News"
)

// sourceRule maps a substring of a raw cafe/community label to its
// canonical source label.
type sourceRule struct {
	pattern string
	label   string
}

// sourceTable is matched in order against the raw origin label; the
// first matching rule wins. The ordering is deliberate: more specific
// community names sit above the generic platform names they could
// otherwise shadow.
var sourceTable = []sourceRule{
	{"고양이라서 다행이야", "고다 카페"},
	{"고다", "고다 카페"},
	{"강아지를 사랑하는 모임", "강사모 카페"},
	{"강사모", "강사모 카페"},
	{"냥이네", "냥이네 카페"},
	{"아지네", "아지네 카페"},
	{"인스타", "Instagram"},
	{"트위터", "Twitter(X)"},
}

// classifySource resolves a raw origin label to a canonical source
// label. Labels matching no rule resolve to record.SourceOther; the
// caller keeps the raw text alongside so nothing is silently dropped
// outside strict mode.
func classifySource(rawLabel string) string {
	for _, rule := range sourceTable {
		if strings.Contains(rawLabel, rule.pattern) {
			return rule.label
		}
	}
	return record.SourceOther
}
