package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/infostats/internal/config"
	"github.com/nao1215/infostats/internal/family"
	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/infostats/internal/platform"
	"github.com/nao1215/infostats/internal/stats"
)

// Fetcher reads records from a dataset. Implementations return an empty
// result instead of an error; platform.Client is the production one.
type Fetcher interface {
	Fetch(ctx context.Context, q platform.Query) []model.MetricRecord
}

// failureCounter is implemented by fetchers that count degraded queries.
type failureCounter interface {
	Failures() int
}

func fetchFailures(f Fetcher) int {
	if fc, ok := f.(failureCounter); ok {
		return fc.Failures()
	}
	return 0
}

// Publisher replaces the contents of the output dataset.
type Publisher interface {
	Publish(ctx context.Context, dataset string, rows []*model.OutputRow) error
	Empty(ctx context.Context, dataset string) error
}

// Archiver stores the rows of a run and returns the file path and digest.
type Archiver interface {
	Write(rows []*model.OutputRow, window model.Window) (string, string, error)
}

// ErrMissingDataset is returned when a step needs a dataset that is not
// configured.
var ErrMissingDataset = errors.New("dataset not configured")

func datasetFor(datasets []config.DatasetConfig, measure string) (config.DatasetConfig, error) {
	for _, d := range datasets {
		if d.OutputField == measure {
			return d, nil
		}
	}
	return config.DatasetConfig{}, fmt.Errorf("%w: %s", ErrMissingDataset, measure)
}

// ResolveFamiliesStep loads the family roots. A resolver error keeps
// whatever roots were found and does not fail the run.
type ResolveFamiliesStep struct {
	resolver family.Resolver
	logger   *slog.Logger
}

// NewResolveFamiliesStep creates a ResolveFamiliesStep.
func NewResolveFamiliesStep(resolver family.Resolver, logger *slog.Logger) *ResolveFamiliesStep {
	return &ResolveFamiliesStep{resolver: resolver, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ResolveFamiliesStep) Name() string {
	return "resolve_families"
}

// Do executes the step.
func (s *ResolveFamiliesStep) Do(ctx context.Context, run *model.Run) error {
	pages, err := s.resolver.Resolve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("family lookup incomplete, continuing with partial roots",
			"roots", len(pages),
			"error", err,
		)
	}
	run.Families = pages
	s.logger.Info("resolved family roots", "roots", len(pages))
	return nil
}

// FetchStep enumerates every configured dataset by path prefix. Datasets
// and prefixes are queried one after another.
type FetchStep struct {
	fetcher      Fetcher
	datasets     []config.DatasetConfig
	prefixLength int
	logger       *slog.Logger
}

// NewFetchStep creates a FetchStep.
func NewFetchStep(fetcher Fetcher, datasets []config.DatasetConfig, prefixLength int, logger *slog.Logger) *FetchStep {
	return &FetchStep{
		fetcher:      fetcher,
		datasets:     datasets,
		prefixLength: prefixLength,
		logger:       orDefault(logger),
	}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the step.
func (s *FetchStep) Do(ctx context.Context, run *model.Run) error {
	before := fetchFailures(s.fetcher)
	defer func() {
		run.FetchFailures += fetchFailures(s.fetcher) - before
	}()

	for _, d := range s.datasets {
		records, err := s.enumerate(ctx, d, run.Window)
		run.AddRecords(d.Name, records)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *FetchStep) enumerate(ctx context.Context, d config.DatasetConfig, w model.Window) ([]model.MetricRecord, error) {
	s.logger.Info("fetching dataset",
		"dataset", d.Name,
		"queries", stats.PrefixCount(s.prefixLength),
	)
	records := make([]model.MetricRecord, 0)
	for prefix := range stats.Prefixes(s.prefixLength) {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		records = append(records, s.fetcher.Fetch(ctx, platform.Query{
			Dataset:        d.Name,
			Collect:        d.AggregateField,
			Window:         w,
			FilterByPrefix: prefix,
		})...)
	}
	s.logger.Info("fetched dataset", "dataset", d.Name, "records", len(records))
	return records, nil
}

// RollupStep folds the problem reports of family descendants into their
// roots.
type RollupStep struct {
	dataset config.DatasetConfig
	logger  *slog.Logger
}

// NewRollupStep creates a RollupStep over the problem-report dataset.
func NewRollupStep(dataset config.DatasetConfig, logger *slog.Logger) *RollupStep {
	return &RollupStep{dataset: dataset, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *RollupStep) Name() string {
	return "rollup"
}

// Do executes the step.
func (s *RollupStep) Do(_ context.Context, run *model.Run) error {
	roots := model.Links(run.Families)
	if len(roots) == 0 {
		s.logger.Debug("no family roots, skipping rollup")
		return nil
	}
	records := run.Raw[s.dataset.Name]
	rolled := stats.NewRollup(roots).Apply(s.dataset.AggregateField, records)
	run.Raw[s.dataset.Name] = rolled
	s.logger.Info("rolled up families",
		"roots", len(roots),
		"records_before", len(records),
		"records_after", len(rolled),
	)
	return nil
}

// AssembleStep builds one row per path seen in the problem-report or
// search data and folds every fetched dataset into the rows. Paths below
// a family root get no row of their own.
type AssembleStep struct {
	datasets []config.DatasetConfig
	logger   *slog.Logger
}

// NewAssembleStep creates an AssembleStep.
func NewAssembleStep(datasets []config.DatasetConfig, logger *slog.Logger) *AssembleStep {
	return &AssembleStep{datasets: datasets, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *AssembleStep) Name() string {
	return "assemble"
}

// Do executes the step.
func (s *AssembleStep) Do(_ context.Context, run *model.Run) error {
	problems, err := datasetFor(s.datasets, model.MeasureProblemReports)
	if err != nil {
		return err
	}
	searches, err := datasetFor(s.datasets, model.MeasureSearchUniques)
	if err != nil {
		return err
	}

	paths := stats.UsefulPaths(run.Raw[problems.Name], run.Raw[searches.Name])
	if roots := model.Links(run.Families); len(roots) > 0 {
		paths = stats.NewRollup(roots).Filter(paths)
	}
	rows := stats.InitialiseRows(paths, run.Window)
	for _, d := range s.datasets {
		records, ok := run.Raw[d.Name]
		if !ok {
			continue
		}
		n, err := stats.Fold(rows, d.OutputField, records)
		if err != nil {
			return err
		}
		s.logger.Debug("folded dataset", "dataset", d.Name, "field", d.OutputField, "rows", n)
	}
	attached := stats.AttachPages(rows, run.Families)

	run.Rows = rows
	s.logger.Info("assembled rows", "rows", len(rows), "with_metadata", attached)
	return nil
}

// PageViewStep fills in page-view counts with exact per-path lookups for
// rows that have none.
type PageViewStep struct {
	batch  *PageViewBatch
	logger *slog.Logger
}

// NewPageViewStep creates a PageViewStep.
func NewPageViewStep(batch *PageViewBatch, logger *slog.Logger) *PageViewStep {
	return &PageViewStep{batch: batch, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *PageViewStep) Name() string {
	return "pageviews"
}

// Do executes the step.
func (s *PageViewStep) Do(ctx context.Context, run *model.Run) error {
	missing := stats.MissingPageviews(run.Rows)
	if len(missing) == 0 {
		return nil
	}

	before := fetchFailures(s.batch.fetcher)
	records, err := s.batch.Lookup(ctx, run.Window, missing)
	run.FetchFailures += fetchFailures(s.batch.fetcher) - before

	if _, ferr := stats.Fold(run.Rows, model.MeasurePageviews, records); ferr != nil {
		return ferr
	}
	return err
}

// NormaliseStep computes the derived rates of every row.
type NormaliseStep struct {
	thresholds stats.Thresholds
	logger     *slog.Logger
}

// NewNormaliseStep creates a NormaliseStep.
func NewNormaliseStep(thresholds stats.Thresholds, logger *slog.Logger) *NormaliseStep {
	return &NormaliseStep{thresholds: thresholds, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *NormaliseStep) Name() string {
	return "normalise"
}

// Do executes the step.
func (s *NormaliseStep) Do(_ context.Context, run *model.Run) error {
	stats.Normalise(run.Rows, s.thresholds)
	derived := 0
	for _, row := range run.Rows {
		if row.HasDerived() {
			derived++
		}
	}
	s.logger.Info("normalised rows", "rows", len(run.Rows), "with_rates", derived)
	return nil
}

// QuintileStep assigns quintile bands.
type QuintileStep struct{}

// Name returns the step name.
func (QuintileStep) Name() string {
	return "quintiles"
}

// Do executes the step.
func (QuintileStep) Do(_ context.Context, run *model.Run) error {
	stats.AssignQuintiles(run.Rows)
	return nil
}

// ArchiveStep writes the rows to the archive.
type ArchiveStep struct {
	archiver Archiver
	logger   *slog.Logger
}

// NewArchiveStep creates an ArchiveStep.
func NewArchiveStep(archiver Archiver, logger *slog.Logger) *ArchiveStep {
	return &ArchiveStep{archiver: archiver, logger: orDefault(logger)}
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// Do executes the step.
func (s *ArchiveStep) Do(_ context.Context, run *model.Run) error {
	path, digest, err := s.archiver.Write(run.Rows, run.Window)
	if err != nil {
		return fmt.Errorf("failed to archive rows: %w", err)
	}
	run.ArchivePath = path
	run.Digest = digest
	s.logger.Info("archived rows", "path", path, "digest", digest)
	return nil
}

// PublishStep replaces the output dataset with the rows.
type PublishStep struct {
	publisher  Publisher
	dataset    string
	emptyFirst bool
	logger     *slog.Logger
}

// NewPublishStep creates a PublishStep. With emptyFirst the dataset is
// cleared before the rows are posted.
func NewPublishStep(publisher Publisher, dataset string, emptyFirst bool, logger *slog.Logger) *PublishStep {
	return &PublishStep{
		publisher:  publisher,
		dataset:    dataset,
		emptyFirst: emptyFirst,
		logger:     orDefault(logger),
	}
}

// Name returns the step name.
func (s *PublishStep) Name() string {
	return "publish"
}

// Do executes the step.
func (s *PublishStep) Do(ctx context.Context, run *model.Run) error {
	if s.emptyFirst {
		if err := s.publisher.Empty(ctx, s.dataset); err != nil {
			return err
		}
	}
	if err := s.publisher.Publish(ctx, s.dataset, run.Rows); err != nil {
		return err
	}
	run.Published = true
	return nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
