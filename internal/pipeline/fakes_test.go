package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/infostats/internal/platform"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWindow() model.Window {
	return model.NewWindow(time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC), 42)
}

// fakeFetcher serves records from memory. Prefix queries return every
// record of the dataset whose path starts with "/"+prefix; exact queries
// return records with that path.
type fakeFetcher struct {
	mu       sync.Mutex
	data     map[string][]model.MetricRecord
	failing  map[string]bool // dataset names whose queries fail
	queries  []platform.Query
	failures int
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		data:    make(map[string][]model.MetricRecord),
		failing: make(map[string]bool),
	}
}

func (f *fakeFetcher) add(dataset, field, path string, v float64) {
	f.data[dataset] = append(f.data[dataset], model.NewMetricRecord(path, field, v))
}

func (f *fakeFetcher) Fetch(ctx context.Context, q platform.Query) []model.MetricRecord {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	failing := f.failing[q.Dataset]
	if failing {
		f.failures++
	}
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(f.delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if failing {
		return []model.MetricRecord{}
	}

	out := []model.MetricRecord{}
	for _, rec := range f.data[q.Dataset] {
		if rec.Field != q.Collect {
			continue
		}
		switch {
		case q.FilterBy != "":
			if rec.PagePath == q.FilterBy {
				out = append(out, rec)
			}
		case q.FilterByPrefix != "":
			if strings.HasPrefix(rec.PagePath, "/"+q.FilterByPrefix) {
				out = append(out, rec)
			}
		default:
			out = append(out, rec)
		}
	}
	return out
}

func (f *fakeFetcher) Failures() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failures
}

func (f *fakeFetcher) queriesFor(dataset string) []platform.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []platform.Query
	for _, q := range f.queries {
		if q.Dataset == dataset {
			out = append(out, q)
		}
	}
	return out
}

type fakePublisher struct {
	calls     []string
	published []*model.OutputRow
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, dataset string, rows []*model.OutputRow) error {
	p.calls = append(p.calls, "POST "+dataset)
	if p.err != nil {
		return p.err
	}
	p.published = rows
	return nil
}

func (p *fakePublisher) Empty(_ context.Context, dataset string) error {
	p.calls = append(p.calls, "PUT "+dataset)
	return p.err
}

type fakeStore struct {
	saved []*model.Run
	err   error
}

func (s *fakeStore) SaveRun(_ context.Context, run *model.Run) error {
	s.saved = append(s.saved, run)
	return s.err
}

type staticResolver struct {
	pages []model.Page
	err   error
}

func (r staticResolver) Resolve(context.Context) ([]model.Page, error) {
	return r.pages, r.err
}

var errBoom = errors.New("boom")
