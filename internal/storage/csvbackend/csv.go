package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order. posted_at is empty for
// unknown-timestamp records.
var headers = []string{
	"run_id",
	"id",
	"posted_at",
	"source",
	"source_raw",
	"title",
	"excerpt",
	"link",
	"query",
	"risk_level",
	"risk_reason",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	// Check if file is empty to write headers
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat archive file: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write archive header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush archive header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, runID string, rec *record.Record) error {
	postedAt := ""
	if rec.Timestamp.Known {
		postedAt = rec.Timestamp.Time.Format(time.RFC3339)
	}

	row := []string{
		runID,
		rec.ID,
		postedAt,
		rec.Source,
		rec.SourceRaw,
		rec.Title,
		rec.Excerpt,
		rec.Link,
		rec.Query,
		strconv.Itoa(int(rec.Risk.Level)),
		rec.Risk.Reason,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Ensure we're at the end of the file for appending (just in case)
	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek archive end: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append archive row: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flush archive row: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*record.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Seek to the beginning of the file to read all entries
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek archive start: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Read headers
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*record.Record{}, nil
		}
		return nil, fmt.Errorf("read archive header: %w", err)
	}

	var allFiltered []*record.Record

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive row: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		level, _ := strconv.Atoi(row[9])
		rec := &record.Record{
			ID:        row[1],
			Source:    row[3],
			SourceRaw: row[4],
			Title:     row[5],
			Excerpt:   row[6],
			Link:      row[7],
			Query:     row[8],
			Risk:      record.Risk{Level: record.Level(level), Reason: row[10]},
		}
		if row[2] != "" {
			if t, err := time.Parse(time.RFC3339, row[2]); err == nil {
				rec.Timestamp = record.At(t)
			}
		}

		// Apply filters
		if filter.RunID != "" && row[0] != filter.RunID {
			continue
		}
		if !matches(rec, filter) {
			continue
		}

		allFiltered = append(allFiltered, rec)
	}

	// Rows were archived in consolidated order (newest first), so the
	// read order is already the presentation order.

	// Apply Offset
	if filter.Offset > 0 {
		if filter.Offset >= len(allFiltered) {
			return []*record.Record{}, nil
		}
		allFiltered = allFiltered[filter.Offset:]
	}

	// Apply Limit
	if filter.Limit > 0 && filter.Limit < len(allFiltered) {
		allFiltered = allFiltered[:filter.Limit]
	}

	return allFiltered, nil
}

// matches applies the non-run filters shared by the file backends.
func matches(rec *record.Record, filter storage.Filter) bool {
	if filter.Source != "" && rec.Source != filter.Source {
		return false
	}
	if filter.Query != "" && rec.Query != filter.Query {
		return false
	}
	if filter.Flagged != nil && rec.Risk.Flagged() != *filter.Flagged {
		return false
	}
	if filter.Since != nil {
		if !rec.Timestamp.Known || rec.Timestamp.Time.Before(*filter.Since) {
			return false
		}
	}
	return true
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
