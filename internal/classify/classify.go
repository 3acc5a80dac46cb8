// Package classify tags records with a risk level by scanning their
// excerpt for fixed trigger terms.
//
// This is a lightweight heuristic, not a classifier: plain substring
// containment, no context window, no negation handling. An excerpt
// that contains a trigger term inside a denial ("벌레 없음") is still
// flagged; the feed tolerates false positives but not misses.
package classify

import (
	"strings"

	"github.com/FranksOps/kanari/internal/record"
)

// Trigger-term tables. Scan order is list order, not position in the
// text: the first term of the first matching tier wins, so the
// ordering below is load-bearing configuration, not style.
var (
	// severeTerms indicate press coverage, regulator involvement, or a
	// recall demand. These incidents have already escaped the community.
	severeTerms = []string{
		"식약처",
		"뉴스",
		"리콜",
		"신고",
	}

	// attentionTerms indicate a foreign-object or refund complaint that
	// is still contained to the poster.
	attentionTerms = []string{
		"구더기",
		"애벌레",
		"이물질",
		"벌레",
		"곰팡이",
		"구토",
		"환불",
	}
)

// Classifier assigns risk tags from its trigger tables. The zero
// tables from Default are the production configuration; tests may
// supply their own.
type Classifier struct {
	severe    []string
	attention []string
}

// Default returns a classifier with the fixed production trigger tables.
func Default() *Classifier {
	return &Classifier{severe: severeTerms, attention: attentionTerms}
}

// NewClassifier builds a classifier with explicit tier tables.
func NewClassifier(severe, attention []string) *Classifier {
	return &Classifier{severe: severe, attention: attention}
}

// Classify scans the excerpt, severe tier first. Matching is
// case-sensitive substring containment.
func (c *Classifier) Classify(excerpt string) record.Risk {
	if term, ok := firstMatch(excerpt, c.severe); ok {
		return record.Risk{Level: record.LevelSevere, Reason: term}
	}
	if term, ok := firstMatch(excerpt, c.attention); ok {
		return record.Risk{Level: record.LevelAttention, Reason: term}
	}
	return record.Risk{Level: record.LevelNormal}
}

func firstMatch(text string, terms []string) (string, bool) {
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(text, term) {
			return term, true
		}
	}
	return "", false
}
