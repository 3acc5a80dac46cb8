package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/storage"
)

func TestJSONBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.ndjson")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	postedAt := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	dated := &record.Record{
		ID:        "a",
		Timestamp: record.At(postedAt),
		Source:    "고다 카페",
		Title:     "사료에서 이물질 나왔어요",
		Excerpt:   "이물질 사진입니다",
		Link:      "https://cafe.naver.com/goda/1",
		Query:     "로얄캐닌",
		Risk:      record.Risk{Level: record.LevelAttention, Reason: "이물질"},
	}
	undated := &record.Record{
		ID:        "b",
		Timestamp: record.Unknown(),
		Source:    record.SourceOther,
		SourceRaw: "펫 블로그",
		Title:     "후기",
		Query:     "로얄캐닌",
	}

	if err := b.Save(ctx, "run-1", dated); err != nil {
		t.Fatalf("Failed to save record: %v", err)
	}
	if err := b.Save(ctx, "run-1", undated); err != nil {
		t.Fatalf("Failed to save undated record: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{RunID: "run-1"})
	if err != nil {
		t.Fatalf("Failed to query records: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(results))
	}

	first := results[0]
	if first.ID != "a" || first.Title != dated.Title || first.Excerpt != dated.Excerpt {
		t.Errorf("Round trip mismatch: %+v", first)
	}
	if !first.Timestamp.Known || !first.Timestamp.Time.Equal(postedAt) {
		t.Errorf("Expected posted at %v, got %+v", postedAt, first.Timestamp)
	}
	if first.Risk.Level != record.LevelAttention || first.Risk.Reason != "이물질" {
		t.Errorf("Expected attention(이물질), got %+v", first.Risk)
	}

	second := results[1]
	if second.Timestamp.Known {
		t.Errorf("Unknown timestamp must stay unknown after a round trip")
	}
	if second.SourceRaw != "펫 블로그" {
		t.Errorf("Expected raw source label preserved, got %q", second.SourceRaw)
	}
}

func TestJSONBackendFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.ndjson")
	b, err := New(path)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	records := []*record.Record{
		{ID: "a", Source: "Naver News", Query: "로얄캐닌",
			Timestamp: record.At(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)),
			Risk:      record.Risk{Level: record.LevelSevere, Reason: "리콜"}},
		{ID: "b", Source: "Naver Blog", Query: "로얄캐닌",
			Timestamp: record.At(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))},
		{ID: "c", Source: "Naver Blog", Query: "로얄캐닌 강아지",
			Timestamp: record.Unknown()},
	}
	for i, rec := range records {
		runID := "run-1"
		if i == 2 {
			runID = "run-2"
		}
		if err := b.Save(ctx, runID, rec); err != nil {
			t.Fatalf("Failed to save record: %v", err)
		}
	}

	results, err := b.Query(ctx, storage.Filter{RunID: "run-2"})
	if err != nil {
		t.Fatalf("Failed to query by run: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Fatalf("Expected only record c in run-2, got %d", len(results))
	}

	results, err = b.Query(ctx, storage.Filter{Query: "로얄캐닌 강아지"})
	if err != nil {
		t.Fatalf("Failed to query by query text: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c" {
		t.Fatalf("Expected only record c for the expanded query, got %d", len(results))
	}

	notFlagged := false
	results, err = b.Query(ctx, storage.Filter{Flagged: &notFlagged})
	if err != nil {
		t.Fatalf("Failed to query unflagged: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 unflagged records, got %d", len(results))
	}

	since := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	results, err = b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("Failed to query with Since: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("Expected Since to keep only record a, got %d", len(results))
	}

	results, err = b.Query(ctx, storage.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("Failed to query with limit: %v", err)
	}
	if len(results) != 2 || results[0].ID != "a" || results[1].ID != "b" {
		t.Fatalf("Expected first two archived records, got %d", len(results))
	}
}
