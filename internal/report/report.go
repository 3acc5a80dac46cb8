package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/kanari/internal/record"
)

// Summary contains the aggregated counters the dashboard's metric cards
// and trend chart are built from.
type Summary struct {
	TotalRecords int
	Flagged      int
	Severe       int
	Attention    int
	// Last24h counts records posted within a day of the run start.
	Last24h int
	// BySource counts records per canonical source label.
	BySource map[string]int
	// ByDay counts records per posted date (YYYY-MM-DD) for the trend
	// series. Unknown-date records are counted in UnknownDates instead.
	ByDay        map[string]int
	UnknownDates int
	// NewestAge is the age of the most recent known-date record at run
	// start; zero when no record carries a known date.
	NewestAge time.Duration
}

// GenerateSummary aggregates a consolidated record set. now is the run
// start the ages and the last-24h window are measured against.
func GenerateSummary(records []record.Record, now time.Time) Summary {
	s := Summary{
		BySource: make(map[string]int),
		ByDay:    make(map[string]int),
	}

	var newest time.Time
	for _, r := range records {
		s.TotalRecords++
		s.BySource[r.Source]++

		switch r.Risk.Level {
		case record.LevelSevere:
			s.Severe++
		case record.LevelAttention:
			s.Attention++
		}

		if !r.Timestamp.Known {
			s.UnknownDates++
			continue
		}
		s.ByDay[r.Timestamp.Time.Format("2006-01-02")]++
		if now.Sub(r.Timestamp.Time) <= 24*time.Hour {
			s.Last24h++
		}
		if r.Timestamp.Time.After(newest) {
			newest = r.Timestamp.Time
		}
	}

	s.Flagged = s.Severe + s.Attention
	if !newest.IsZero() && now.After(newest) {
		s.NewestAge = now.Sub(newest)
	}

	return s
}

// csvHeaders mirror the dashboard table's visible columns.
var csvHeaders = []string{"date", "source", "title", "excerpt", "risk", "reason", "link"}

// WriteCSV exports the record table as UTF-8 CSV with a byte-order
// mark, which spreadsheet tools require to pick the right encoding.
// Unknown dates export as empty cells.
func WriteCSV(w io.Writer, records []record.Record) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write byte-order mark: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range records {
		date := ""
		if r.Timestamp.Known {
			date = r.Timestamp.Time.Format("2006-01-02")
		}
		row := []string{
			date,
			r.Source,
			r.Title,
			r.Excerpt,
			r.Risk.Level.String(),
			r.Risk.Reason,
			r.Link,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteText writes a human-readable run summary to the provided writer.
func WriteText(w io.Writer, summary Summary, warnings []string) error {
	const textTmpl = `Kanari Collection Summary
-------------------------
Total Records:  {{.Summary.TotalRecords}}
Flagged:        {{.Summary.Flagged}} ({{.Summary.Severe}} severe, {{.Summary.Attention}} attention)
Last 24h:       {{.Summary.Last24h}}
Unknown Dates:  {{.Summary.UnknownDates}}
Newest Age:     {{.Summary.NewestAge}}

By Source:
{{- range $src, $count := .Summary.BySource}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}

Warnings:
{{- range .Warnings}}
  {{.}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse summary template: %w", err)
	}

	data := struct {
		Summary  Summary
		Warnings []string
	}{summary, warnings}

	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}

	return nil
}
