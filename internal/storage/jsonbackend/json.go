package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// line is the NDJSON row shape: the record plus its run provenance.
type line struct {
	RunID  string         `json:"run_id"`
	Record *record.Record `json:"record"`
}

// New creates a new NDJSON-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	// Open file for appending, create if it doesn't exist
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Save(ctx context.Context, runID string, rec *record.Record) error {
	data, err := json.Marshal(line{RunID: runID, Record: rec})
	if err != nil {
		return fmt.Errorf("marshal archive row: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err = b.file.Write(append(data, '\n'))
	if err != nil {
		return fmt.Errorf("append archive row: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*record.Record, error) {
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

	scanner := bufio.NewScanner(b.file)

	// In a real DB, filtering and ordering is handled by the engine.
	// For NDJSON, we read everything and filter in memory; rows were
	// archived in consolidated order already.
	var allFiltered []*record.Record

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var l line
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, fmt.Errorf("decode archive row: %w", err)
		}
		if l.Record == nil {
			continue
		}

		if filter.RunID != "" && l.RunID != filter.RunID {
			continue
		}
		rec := l.Record
		if filter.Source != "" && rec.Source != filter.Source {
			continue
		}
		if filter.Query != "" && rec.Query != filter.Query {
			continue
		}
		if filter.Flagged != nil && rec.Risk.Flagged() != *filter.Flagged {
			continue
		}
		if filter.Since != nil {
			if !rec.Timestamp.Known || rec.Timestamp.Time.Before(*filter.Since) {
				continue
			}
		}

		allFiltered = append(allFiltered, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan archive: %w", err)
	}

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

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
