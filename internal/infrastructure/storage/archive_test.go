package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"healthbrief/internal/domain"
)

func openTestArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	archive, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func TestSaveAndLoadNewsletter(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()
	date := time.Date(2026, time.August, 24, 9, 0, 0, 0, time.UTC)

	doc := domain.Document{Body: "# Weekly Report", Source: domain.SourceLLM}
	if err := archive.SaveNewsletter(ctx, date, doc); err != nil {
		t.Fatalf("save newsletter: %v", err)
	}

	loaded, err := archive.Newsletter(ctx, date)
	if err != nil {
		t.Fatalf("load newsletter: %v", err)
	}
	if loaded == nil || loaded.Body != doc.Body || loaded.Source != domain.SourceLLM {
		t.Fatalf("loaded = %+v", loaded)
	}

	// A rerun on the same day replaces the stored body.
	rerun := domain.Document{Body: "# Regenerated", Source: domain.SourceFallback}
	if err := archive.SaveNewsletter(ctx, date, rerun); err != nil {
		t.Fatalf("save rerun: %v", err)
	}
	loaded, err = archive.Newsletter(ctx, date)
	if err != nil {
		t.Fatalf("load rerun: %v", err)
	}
	if loaded.Body != "# Regenerated" || loaded.Source != domain.SourceFallback {
		t.Fatalf("rerun not stored: %+v", loaded)
	}
}

func TestNewsletterMissingDate(t *testing.T) {
	archive := openTestArchive(t)

	loaded, err := archive.Newsletter(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("load newsletter: %v", err)
	}
	if loaded != nil {
		t.Fatalf("expected nil for a missing date, got %+v", loaded)
	}
}

func TestStatsRoundTrip(t *testing.T) {
	archive := openTestArchive(t)
	ctx := context.Background()

	base := time.Date(2026, time.August, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		stats := domain.RunStats{
			RunAt:      base.AddDate(0, 0, 7*i),
			Fetched:    5 + i,
			AfterDedup: 4,
			Scored:     3,
			Included:   2,
			Delivered:  i%2 == 0,
		}
		if i == 2 {
			stats.Errors = []domain.SourceError{{Source: "site-a", Message: "timeout"}}
		}
		if err := archive.SaveStats(ctx, stats); err != nil {
			t.Fatalf("save stats %d: %v", i, err)
		}
	}

	records, err := archive.RecentStats(ctx, 2)
	if err != nil {
		t.Fatalf("recent stats: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Newest first.
	if !records[0].RunAt.After(records[1].RunAt) {
		t.Fatalf("records out of order: %v then %v", records[0].RunAt, records[1].RunAt)
	}
	if len(records[0].Errors) != 1 || records[0].Errors[0].Source != "site-a" {
		t.Fatalf("errors not preserved: %+v", records[0].Errors)
	}
	if len(records[1].Errors) != 0 {
		t.Fatalf("expected no errors, got %+v", records[1].Errors)
	}
}
