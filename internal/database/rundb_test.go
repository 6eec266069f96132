package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/infostats/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testRun(id string, started time.Time, paths ...string) *model.Run {
	w := model.NewWindow(started, 42)
	run := model.NewRun(id, w)
	run.StartedAt = started
	run.FinishedAt = started.Add(time.Minute)
	for _, p := range paths {
		row := model.NewOutputRow(p, w)
		row.ProblemReports = model.Float(3)
		run.Rows = append(run.Rows, row)
	}
	run.Digest = "digest-" + id
	return run
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database without WAL", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveAndGetRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2014, 6, 30, 6, 0, 0, 0, time.UTC)

	run := testRun("run-1", started, "/a", "/b")
	run.Published = true
	run.Families = []model.Page{{Link: "/a", Format: model.FormatSmartAnswer}}
	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	got, err := db.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.ID != "run-1" || len(got.Rows) != 2 || !got.Published {
		t.Errorf("unexpected run %+v", got)
	}
	if got.Rows[0].PagePath != "/a" || got.Rows[0].ProblemReports == nil || *got.Rows[0].ProblemReports != 3 {
		t.Errorf("unexpected first row %+v", got.Rows[0])
	}
	if got.Window.EndAt() != run.Window.EndAt() {
		t.Errorf("window end = %s, want %s", got.Window.EndAt(), run.Window.EndAt())
	}
	if got.Raw == nil {
		t.Error("expected Raw to be initialised")
	}

	t.Run("saving again updates the run", func(t *testing.T) {
		run.Rows = run.Rows[:1]
		run.ErrorMessage = "publish failed"
		if err := db.SaveRun(ctx, run); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		got, err := db.GetRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if len(got.Rows) != 1 || got.ErrorMessage != "publish failed" {
			t.Errorf("unexpected run %+v", got)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		if _, err := db.GetRun(ctx, "nope"); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})
}

func TestLatestAndPreviousRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.GetLatestRun(ctx); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound on empty database, got %v", err)
	}

	base := time.Date(2014, 6, 2, 6, 0, 0, 0, time.UTC)
	first := testRun("first", base, "/a")
	failed := testRun("failed", base.AddDate(0, 0, 7), "/a")
	failed.ErrorMessage = "boom"
	last := testRun("last", base.AddDate(0, 0, 14), "/a", "/b")

	for _, r := range []*model.Run{last, first, failed} {
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	latest, err := db.GetLatestRun(ctx)
	if err != nil {
		t.Fatalf("failed to get latest run: %v", err)
	}
	if latest.ID != "last" {
		t.Errorf("latest = %s, want last", latest.ID)
	}

	prev, err := db.PreviousRun(ctx, latest)
	if err != nil {
		t.Fatalf("failed to get previous run: %v", err)
	}
	if prev.ID != "first" {
		t.Errorf("previous = %s, want first (failed runs are skipped)", prev.ID)
	}

	if _, err := db.PreviousRun(ctx, first); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound before the first run, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2014, 6, 2, 6, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		r := testRun(id, base.AddDate(0, 0, 7*i), "/x")
		r.ArchivePath = "/tmp/" + id + ".json"
		if err := db.SaveRun(ctx, r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	all, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(all))
	}
	if all[0].ID != "c" || all[2].ID != "a" {
		t.Errorf("expected newest first, got %s..%s", all[0].ID, all[2].ID)
	}
	if all[0].RowCount != 1 || all[0].Digest != "digest-c" || all[0].ArchivePath != "/tmp/c.json" {
		t.Errorf("unexpected metadata %+v", all[0])
	}
	if !all[0].StartedAt.Equal(base.AddDate(0, 0, 14)) {
		t.Errorf("unexpected start %v", all[0].StartedAt)
	}
	if all[0].WindowEnd != "2014-06-16T00:00:00Z" {
		t.Errorf("unexpected window end %s", all[0].WindowEnd)
	}

	limited, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2014, 6, 30, 6, 0, 0, 0, time.UTC)
	tests := []string{
		formatTimestamp(want),
		"2014-06-30 06:00:00",
		"2014-06-30T06:00:00Z",
	}
	for _, s := range tests {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v", s, got)
		}
	}
	if !parseTimestamp("garbage").IsZero() {
		t.Error("expected zero time for garbage")
	}
	if formatTimestamp(time.Time{}) != "" {
		t.Error("expected empty string for zero time")
	}
}
