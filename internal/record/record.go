package record

import (
	"strings"
	"time"
)

// Level grades how alarming a collected mention is.
type Level int

const (
	LevelNormal Level = iota
	LevelAttention
	LevelSevere
)

func (l Level) String() string {
	switch l {
	case LevelSevere:
		return "severe"
	case LevelAttention:
		return "attention"
	default:
		return "normal"
	}
}

// Risk is the classifier's verdict for one record. Reason holds the
// trigger term that matched, empty for LevelNormal.
type Risk struct {
	Level  Level  `json:"level"`
	Reason string `json:"reason,omitempty"`
}

// Flagged reports whether the record matched any trigger term.
func (r Risk) Flagged() bool {
	return r.Level != LevelNormal
}

// Timestamp is a point in time that the upstream service may simply not
// provide. Known=false is a first-class state, never a stand-in "now":
// how unknown timestamps order and filter is decided downstream, the
// record itself only says "we don't know".
type Timestamp struct {
	Time  time.Time `json:"time"`
	Known bool      `json:"known"`
}

// At returns a known timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t, Known: true}
}

// Unknown returns the unknown-timestamp sentinel.
func Unknown() Timestamp {
	return Timestamp{}
}

// SourceOther is the canonical label for origin labels that match no
// entry in the source mapping table. The raw label survives in
// Record.SourceRaw.
const SourceOther = "Other"

// Record is the pipeline's canonical unit of work: one collected
// mention, normalized from whichever category-specific raw shape the
// search service returned it in.
type Record struct {
	ID        string    `json:"id"`
	Timestamp Timestamp `json:"timestamp"`
	Source    string    `json:"source"`
	SourceRaw string    `json:"source_raw,omitempty"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	Link      string    `json:"link"`
	Query     string    `json:"query"`
	Risk      Risk      `json:"risk"`
}

// NormalizedTitle is the dedup key: lowercased, with runs of whitespace
// collapsed to a single space.
func (r *Record) NormalizedTitle() string {
	return strings.Join(strings.Fields(strings.ToLower(r.Title)), " ")
}
