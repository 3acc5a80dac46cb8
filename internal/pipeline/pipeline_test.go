package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/FranksOps/kanari/internal/record"
	"github.com/FranksOps/kanari/internal/search"
	"github.com/FranksOps/kanari/internal/storage"
)

type scriptedProvider struct {
	pages map[string]*search.Result
	errs  map[string]error
}

func key(cat search.Category, q string) string {
	return fmt.Sprintf("%s|%s", cat, q)
}

func (s *scriptedProvider) Search(ctx context.Context, cat search.Category, q string, start, display int) (*search.Result, error) {
	k := key(cat, q)
	if err, ok := s.errs[k]; ok {
		return nil, err
	}
	if start > 1 {
		return &search.Result{}, nil
	}
	if res, ok := s.pages[k]; ok {
		return res, nil
	}
	return &search.Result{}, nil
}

type memoryArchive struct {
	mu    sync.Mutex
	runID string
	saved []*record.Record
}

func (m *memoryArchive) Save(ctx context.Context, runID string, rec *record.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runID = runID
	m.saved = append(m.saved, rec)
	return nil
}

func (m *memoryArchive) Query(ctx context.Context, f storage.Filter) ([]*record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func (m *memoryArchive) Close() error { return nil }

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPreconditions(t *testing.T) {
	p := &Pipeline{Logger: quiet()}
	if _, err := p.Run(context.Background(), Config{Keywords: "x"}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}

	p = &Pipeline{Provider: &scriptedProvider{}, Logger: quiet()}
	if _, err := p.Run(context.Background(), Config{Keywords: ""}); !errors.Is(err, ErrNoKeywords) {
		t.Errorf("expected ErrNoKeywords, got %v", err)
	}
	if _, err := p.Run(context.Background(), Config{Keywords: " , ,"}); !errors.Is(err, ErrNoKeywords) {
		t.Errorf("expected ErrNoKeywords for separator-only input, got %v", err)
	}
}

func TestRunEndToEnd(t *testing.T) {
	provider := &scriptedProvider{pages: map[string]*search.Result{
		key(search.CategoryBlog, "로얄캐닌"): {Items: []search.RawRecord{
			{
				Title:       "<b>로얄캐닌</b> 벌레 발견 후기",
				Description: "사료에서 벌레가 나왔습니다",
				Link:        "https://blog.naver.com/a/1",
				PostDate:    "20240308",
			},
			{
				Title:       "로얄캐닌 잘 먹어요",
				Description: "기호성 좋네요",
				Link:        "https://blog.naver.com/b/2",
				PostDate:    "20240307",
			},
		}},
		key(search.CategoryCafe, "로얄캐닌"): {Items: []search.RawRecord{
			{
				Title:       "로얄캐닌  벌레 발견  후기", // dup title modulo whitespace
				Description: "식약처에 신고했습니다",
				Link:        "https://cafe.naver.com/goda/3",
				CafeName:    "고양이라서 다행이야",
				// no postdate: unknown timestamp, sorts as run start
			},
		}},
	}}

	archive := &memoryArchive{}
	p := &Pipeline{Provider: provider, Archive: archive, Logger: quiet()}

	res, err := p.Run(context.Background(), Config{
		Keywords:   "로얄캐닌",
		Categories: []search.Category{search.CategoryBlog, search.CategoryCafe},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.RunID == "" {
		t.Errorf("expected a run ID")
	}
	if res.Queried != 1 {
		t.Errorf("expected 1 expanded query, got %d", res.Queried)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", res.Warnings)
	}

	// Three raw items, two share a normalized title; the undated cafe
	// record sorts as run start and wins its dedup group.
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 consolidated records, got %d", len(res.Records))
	}

	top := res.Records[0]
	if top.Source != "고다 카페" {
		t.Errorf("expected the undated cafe record on top, got source %q", top.Source)
	}
	if top.Timestamp.Known {
		t.Errorf("the cafe record's timestamp must stay unknown")
	}
	if top.Risk.Level != record.LevelSevere || top.Risk.Reason != "식약처" {
		t.Errorf("expected severe(식약처), got %v(%q)", top.Risk.Level, top.Risk.Reason)
	}

	second := res.Records[1]
	if second.Risk.Flagged() {
		t.Errorf("clean excerpt must not be flagged, got %v", second.Risk)
	}

	// Every consolidated record lands in the archive, tagged with the run.
	if archive.runID != res.RunID {
		t.Errorf("archive run id = %q, want %q", archive.runID, res.RunID)
	}
	if len(archive.saved) != len(res.Records) {
		t.Errorf("archived %d records, want %d", len(archive.saved), len(res.Records))
	}
}

func TestRunPartialFailure(t *testing.T) {
	provider := &scriptedProvider{
		pages: map[string]*search.Result{
			key(search.CategoryBlog, "q1"): {Items: []search.RawRecord{
				{Title: "q1 result", Description: "d", Link: "https://x/1", PostDate: "20240308"},
			}},
			key(search.CategoryBlog, "q3"): {Items: []search.RawRecord{
				{Title: "q3 result", Description: "d", Link: "https://x/3", PostDate: "20240308"},
			}},
		},
		errs: map[string]error{
			key(search.CategoryBlog, "q2"): errors.New("status 500"),
		},
	}

	p := &Pipeline{Provider: provider, Logger: quiet()}
	res, err := p.Run(context.Background(), Config{
		Keywords:   "q1, q2, q3",
		Categories: []search.Category{search.CategoryBlog},
	})
	if err != nil {
		t.Fatalf("a partial failure must not fail the run: %v", err)
	}

	if len(res.Records) != 2 {
		t.Errorf("expected q1 and q3 records, got %d", len(res.Records))
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "q2") {
		t.Errorf("expected a warning naming q2, got %v", res.Warnings)
	}
}

func TestRunUnifiedBrandMode(t *testing.T) {
	provider := &scriptedProvider{pages: map[string]*search.Result{
		key(search.CategoryBlog, "아이프로플랜"): {Items: []search.RawRecord{
			{Title: "t", Description: "d", Link: "https://x/1", PostDate: "20240308"},
		}},
	}}

	p := &Pipeline{Provider: provider, Logger: quiet()}
	res, err := p.Run(context.Background(), Config{
		Keywords:     "아이프로플랜",
		Categories:   []search.Category{search.CategoryBlog},
		UnifiedBrand: "로얄캐닌",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	if res.Records[0].Query != "로얄캐닌" {
		t.Errorf("unified mode must collapse the query label, got %q", res.Records[0].Query)
	}
}

func TestRunEmptyResultIsNotAnError(t *testing.T) {
	p := &Pipeline{Provider: &scriptedProvider{}, Logger: quiet()}
	res, err := p.Run(context.Background(), Config{
		Keywords:   "아무도 안 쓰는 브랜드",
		Categories: []search.Category{search.CategoryBlog},
	})
	if err != nil {
		t.Fatalf("an empty result is not an error: %v", err)
	}
	if len(res.Records) != 0 || len(res.Warnings) != 0 {
		t.Errorf("expected a clean empty result, got %d records, %v warnings", len(res.Records), res.Warnings)
	}
}
