package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/infostats/internal/config"
	"github.com/nao1215/infostats/internal/family"
	"github.com/nao1215/infostats/internal/metrics"
	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/infostats/internal/report"
)

// RunStore saves finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// Deps are the collaborators of a run. Resolver and Fetcher are required;
// a nil Archiver, Publisher or Store disables that stage.
type Deps struct {
	Resolver  family.Resolver
	Fetcher   Fetcher
	Archiver  Archiver
	Publisher Publisher
	Store     RunStore
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	// NewID returns run identifiers. Defaults to random UUIDs.
	NewID func() string

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// ErrMissingDependency is returned when a required collaborator is nil.
var ErrMissingDependency = errors.New("missing pipeline dependency")

// NewRunPipeline builds the step sequence for cfg.
func NewRunPipeline(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if deps.Resolver == nil || deps.Fetcher == nil {
		return nil, fmt.Errorf("%w: resolver and fetcher are required", ErrMissingDependency)
	}
	logger := orDefault(deps.Logger)

	problems, err := datasetFor(cfg.Datasets, model.MeasureProblemReports)
	if err != nil {
		return nil, err
	}
	pageviews, err := datasetFor(cfg.Datasets, model.MeasurePageviews)
	if err != nil {
		return nil, err
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewResolveFamiliesStep(deps.Resolver, logger),
		NewFetchStep(deps.Fetcher, cfg.EnumeratedDatasets(), cfg.PrefixLength, logger),
		NewRollupStep(problems, logger),
		NewAssembleStep(cfg.Datasets, logger),
		NewPageViewStep(
			NewPageViewBatch(deps.Fetcher, pageviews.Name, pageviews.AggregateField,
				WithConcurrency(cfg.Concurrency),
				WithBatchLogger(logger),
			),
			logger,
		),
		NewNormaliseStep(cfg.Thresholds, logger),
	)
	if cfg.Quintiles {
		p.AddStep(QuintileStep{})
	}
	if deps.Archiver != nil {
		p.AddStep(NewArchiveStep(deps.Archiver, logger))
	}
	if cfg.Publish && deps.Publisher != nil {
		p.AddStep(NewPublishStep(deps.Publisher, cfg.OutputDataset, cfg.EmptyFirst, logger))
	}
	return p, nil
}

// Runner executes complete runs: it builds the pipeline, records metrics
// and saves every run, failed or not, to the store.
type Runner struct {
	cfg  *config.Config
	deps Deps
}

// NewRunner creates a Runner. cfg must already be validated and is not
// modified.
func NewRunner(cfg *config.Config, deps Deps) *Runner {
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	deps.Logger = orDefault(deps.Logger)
	return &Runner{cfg: cfg, deps: deps}
}

// Run executes one run over the configured window. The returned run is
// non-nil whenever the pipeline could be built, including on error.
func (r *Runner) Run(ctx context.Context) (*model.Run, error) {
	p, err := NewRunPipeline(r.cfg, r.deps)
	if err != nil {
		return nil, err
	}

	run := model.NewRun(r.deps.NewID(), r.cfg.Window(r.deps.Now()))
	run.StartedAt = r.deps.Now()
	logger := r.deps.Logger.With("run", run.ID)
	logger.Info("starting run",
		"window_start", run.Window.StartAt(),
		"window_end", run.Window.EndAt(),
		"steps", p.StepNames(),
	)

	runErr := p.Execute(ctx, run)
	run.FinishedAt = r.deps.Now()
	if run.Digest == "" {
		if data, err := report.EncodeRows(run.Rows); err == nil {
			run.Digest = report.Digest(data)
		}
	}
	r.deps.Metrics.ObserveRun(len(run.Rows), run.Duration(), runErr)

	if r.deps.Store != nil {
		// a cancelled run is still recorded
		if err := r.deps.Store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Error("failed to save run", "error", err)
			runErr = errors.Join(runErr, fmt.Errorf("failed to save run: %w", err))
		}
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr, "elapsed", run.Duration())
		return run, runErr
	}
	logger.Info("run complete",
		"rows", len(run.Rows),
		"fetch_failures", run.FetchFailures,
		"published", run.Published,
		"elapsed", run.Duration(),
	)
	return run, nil
}
