package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/infostats/internal/config"
	"github.com/nao1215/infostats/internal/family"
	"github.com/nao1215/infostats/internal/report"
)

func runConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.EndDate = time.Date(2014, 6, 30, 12, 0, 0, 0, time.UTC)
	cfg.Token = "test-token"
	return cfg
}

// sampleFetcher serves a small data set:
//
//	problems: /a 2, /a/x 3, /a/y 4, /b 2, /c 469
//	searches: /b 930
//	views:    /a, /b and /c 10000 each
func sampleFetcher() *fakeFetcher {
	f := newFakeFetcher()
	f.add(problemDataset, problemField, "/a", 2)
	f.add(problemDataset, problemField, "/a/x", 3)
	f.add(problemDataset, problemField, "/a/y", 4)
	f.add(problemDataset, problemField, "/b", 2)
	f.add(problemDataset, problemField, "/c", 469)
	f.add(searchDataset, searchField, "/b", 930)
	f.add(searchDataset, searchField, "/a/x", 7)
	for _, p := range []string{"/a", "/b", "/c"} {
		f.add(pageviewDataset, pageviewField, p, 10000)
	}
	return f
}

func TestNewRunPipeline(t *testing.T) {
	t.Parallel()

	t.Run("requires resolver and fetcher", func(t *testing.T) {
		t.Parallel()

		_, err := NewRunPipeline(runConfig(), Deps{Fetcher: newFakeFetcher()})
		if !errors.Is(err, ErrMissingDependency) {
			t.Errorf("expected ErrMissingDependency, got %v", err)
		}
	})

	t.Run("base steps", func(t *testing.T) {
		t.Parallel()

		cfg := runConfig()
		cfg.Publish = false
		p, err := NewRunPipeline(cfg, Deps{Resolver: family.NewStatic(), Fetcher: newFakeFetcher()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"resolve_families", "fetch", "rollup", "assemble", "pageviews", "normalise"}
		got := p.StepNames()
		if len(got) != len(want) {
			t.Fatalf("expected steps %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("step %d: expected %s, got %s", i, want[i], got[i])
			}
		}
	})

	t.Run("optional steps", func(t *testing.T) {
		t.Parallel()

		cfg := runConfig()
		cfg.Quintiles = true
		p, err := NewRunPipeline(cfg, Deps{
			Resolver:  family.NewStatic(),
			Fetcher:   newFakeFetcher(),
			Archiver:  fakeArchiver{},
			Publisher: &fakePublisher{},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		names := p.StepNames()
		tail := names[len(names)-3:]
		if tail[0] != "quintiles" || tail[1] != "archive" || tail[2] != "publish" {
			t.Errorf("unexpected optional steps %v", names)
		}
	})
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("end to end", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		publisher := &fakePublisher{}
		store := &fakeStore{}
		cfg := runConfig()
		cfg.EmptyFirst = true

		runner := NewRunner(cfg, Deps{
			Resolver:  family.NewStatic("/a"),
			Fetcher:   sampleFetcher(),
			Archiver:  report.NewArchiveWriter(dir),
			Publisher: publisher,
			Store:     store,
			Logger:    quietLogger(),
			NewID:     func() string { return "run-1" },
		})

		run, err := runner.Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.ID != "run-1" {
			t.Errorf("expected run-1, got %s", run.ID)
		}
		if len(run.Rows) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(run.Rows))
		}
		if run.Row("/a/x") != nil {
			t.Error("family sub-page /a/x must not get its own row")
		}

		a := run.Row("/a")
		if a.ProblemReports == nil || *a.ProblemReports != 9 {
			t.Errorf("expected rolled up /a = 9, got %v", a.ProblemReports)
		}
		if a.ProblemsPer100kViews == nil || *a.ProblemsPer100kViews != 90 {
			t.Errorf("expected /a rate 90, got %v", a.ProblemsPer100kViews)
		}
		if run.Row("/a/x") != nil {
			t.Error("descendants must not produce rows")
		}

		b := run.Row("/b")
		if b.ProblemsPer100kViews != nil {
			t.Error("expected /b problems at threshold to have no rate")
		}
		if b.SearchesPer100kViews == nil || *b.SearchesPer100kViews != 9300 {
			t.Errorf("expected /b search rate 9300, got %v", b.SearchesPer100kViews)
		}
		if b.SearchesNormalised == nil || *b.SearchesNormalised != 8649000 {
			t.Errorf("expected /b searches normalised 8649000, got %v", b.SearchesNormalised)
		}

		c := run.Row("/c")
		if c.ProblemsNormalised == nil || *c.ProblemsNormalised != 2199610 {
			t.Errorf("expected /c normalised 2199610, got %v", c.ProblemsNormalised)
		}

		wantPath := filepath.Join(dir, "data-2014-06-30.json")
		if run.ArchivePath != wantPath {
			t.Errorf("expected archive %s, got %s", wantPath, run.ArchivePath)
		}
		data, err := os.ReadFile(wantPath)
		if err != nil {
			t.Fatalf("failed to read archive: %v", err)
		}
		if run.Digest != report.Digest(data) {
			t.Error("digest does not match archive contents")
		}

		if len(publisher.calls) != 2 || !run.Published {
			t.Errorf("expected empty then publish, got %v", publisher.calls)
		}
		if len(store.saved) != 1 || store.saved[0] != run {
			t.Error("expected run to be saved")
		}
		if run.FinishedAt.IsZero() || run.FetchFailures != 0 {
			t.Errorf("unexpected run state: finished=%v failures=%d", run.FinishedAt, run.FetchFailures)
		}
	})

	t.Run("computes digest without archive", func(t *testing.T) {
		t.Parallel()

		cfg := runConfig()
		cfg.Publish = false
		run, err := NewRunner(cfg, Deps{
			Resolver: family.NewStatic(),
			Fetcher:  sampleFetcher(),
			Logger:   quietLogger(),
		}).Run(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := report.EncodeRows(run.Rows)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Digest != report.Digest(data) {
			t.Error("expected digest of encoded rows")
		}
		if run.Published {
			t.Error("expected unpublished run")
		}
	})

	t.Run("publish failure is saved", func(t *testing.T) {
		t.Parallel()

		store := &fakeStore{}
		run, err := NewRunner(runConfig(), Deps{
			Resolver:  family.NewStatic(),
			Fetcher:   sampleFetcher(),
			Publisher: &fakePublisher{err: errBoom},
			Store:     store,
			Logger:    quietLogger(),
		}).Run(context.Background())
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if run == nil || run.ErrorMessage == "" {
			t.Fatal("expected failed run with error message")
		}
		if len(store.saved) != 1 {
			t.Error("failed run must still be saved")
		}
	})

	t.Run("store error is reported", func(t *testing.T) {
		t.Parallel()

		cfg := runConfig()
		cfg.Publish = false
		_, err := NewRunner(cfg, Deps{
			Resolver: family.NewStatic(),
			Fetcher:  sampleFetcher(),
			Store:    &fakeStore{err: errBoom},
			Logger:   quietLogger(),
		}).Run(context.Background())
		if !errors.Is(err, errBoom) {
			t.Errorf("expected errBoom, got %v", err)
		}
	})

	t.Run("cancelled run", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := &fakeStore{}
		run, err := NewRunner(runConfig(), Deps{
			Resolver:  family.NewStatic(),
			Fetcher:   sampleFetcher(),
			Publisher: &fakePublisher{},
			Store:     store,
			Logger:    quietLogger(),
		}).Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if !run.Cancelled || run.Published {
			t.Errorf("expected cancelled unpublished run, got cancelled=%v published=%v", run.Cancelled, run.Published)
		}
		if len(store.saved) != 1 {
			t.Error("cancelled run must still be saved")
		}
	})

	t.Run("missing dependency", func(t *testing.T) {
		t.Parallel()

		run, err := NewRunner(runConfig(), Deps{}).Run(context.Background())
		if !errors.Is(err, ErrMissingDependency) || run != nil {
			t.Errorf("expected ErrMissingDependency and nil run, got %v", err)
		}
	})
}
