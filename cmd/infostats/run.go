package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nao1215/infostats/internal/config"
	"github.com/nao1215/infostats/internal/database"
	"github.com/nao1215/infostats/internal/family"
	"github.com/nao1215/infostats/internal/metrics"
	"github.com/nao1215/infostats/internal/model"
	"github.com/nao1215/infostats/internal/pipeline"
	"github.com/nao1215/infostats/internal/platform"
	"github.com/nao1215/infostats/internal/report"
	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the dataset once and publish it",
		Long: `Run builds the info-statistics dataset for the trailing window ending today
(or --end-date) and publishes it.

The job:
- resolves the family roots (multi-step pages) from the search API
- enumerates problem reports and searches by path prefix
- rolls up the problem reports of family sub-pages into their root
- looks up page views for every path and normalises the counts
- archives the rows as data-YYYY-MM-DD.json and publishes them

Examples:
  # Build and publish the dataset
  infostats run

  # Build without publishing and print a Markdown summary
  infostats run --no-publish --markdown

  # Backfill an earlier window using two-letter enumeration
  infostats run --end-date 2014-06-30 --prefix-length 2

  # Replace the published dataset instead of appending to it
  infostats run --empty-first`,
		Args: cobra.NoArgs,
		RunE: runRunCmd,
	}

	addJobFlags(cmd)

	cmd.Flags().String("end-date", "",
		"Last day of the window (format: YYYY-MM-DD, default: today)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON summary (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown summary (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write summary to specified file path (creates directories if needed)")
	cmd.Flags().Int("top", model.DefaultTopN,
		"Number of pages listed in each ranking of the summary")

	return cmd
}

// addJobFlags registers the flags shared by run and schedule.
// Flags override the configuration file only when given.
func addJobFlags(cmd *cobra.Command) {
	// Data source flags
	cmd.Flags().String("data-domain", config.DefaultDataDomain,
		"Root URL of the statistics service API")
	cmd.Flags().String("data-group", config.DefaultDataGroup,
		"Data group of the datasets")
	cmd.Flags().String("output-dataset", config.DefaultOutputDataset,
		"Dataset the rows are published to")

	// Window and enumeration flags
	cmd.Flags().IntP("lookback", "l", config.DefaultLookbackDays,
		"Length of the window in days")
	cmd.Flags().IntP("prefix-length", "p", config.DefaultPrefixLength,
		"Enumeration prefix length: 1 (26 queries per dataset) or 2 (676)")
	cmd.Flags().Bool("enumerate-pageviews", false,
		"Also enumerate page views by prefix; only missing counts get exact lookups")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of concurrent page-view lookups (1 is sequential)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request to the statistics service")

	// Normalisation flags
	cmd.Flags().Float64("problem-threshold", 0,
		"Minimum problem reports for a rate (default from configuration: 2)")
	cmd.Flags().Float64("search-threshold", 0,
		"Minimum searches for a rate (default from configuration: 3)")
	cmd.Flags().Bool("quintiles", false,
		"Assign quintile bands to the rates")

	// Family flags
	cmd.Flags().Bool("no-search", false,
		"Do not ask the search API for family roots")
	cmd.Flags().StringSlice("family-root", nil,
		"Extra family root path (repeatable)")
	cmd.Flags().String("urls-file", "",
		"JSON dump of search results to read family roots from")

	// Output flags
	cmd.Flags().String("archive-dir", "",
		"Directory for data-YYYY-MM-DD.json archives (default: XDG data directory)")
	cmd.Flags().Bool("no-archive", false,
		"Do not write the archive file")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")
	cmd.Flags().Bool("no-publish", false,
		"Do not publish the rows (no token required)")
	cmd.Flags().Bool("empty-first", false,
		"Clear the output dataset before publishing")
	cmd.Flags().String("env-file", "",
		"Environment file holding PP_DATASET_TOKEN (default: .env if present)")
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	topN, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, stop := signalContext(logger)
	defer stop()

	runner, cleanup, err := newRunner(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	run, runErr := runner.Run(ctx)
	if run != nil {
		if err := outputSummary(cfg, model.NewSummary(run, topN), cmd.OutOrStdout()); err != nil {
			logger.Error("summary failed", "error", err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("run failed: %w", runErr)
	}
	return nil
}

// loadFileConfig returns the default configuration overlaid with the
// configuration file. An explicitly given file must exist; otherwise a
// missing file is not an error.
func loadFileConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	explicit := getStringFlag(cmd, "config")
	path := config.FindConfigFile(explicit)
	switch {
	case path != "":
		file, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		file.Apply(cfg)
		cfg.ConfigFilePath = path
	case explicit != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicit)
	}
	return cfg, nil
}

// loadToken loads the environment file named by --env-file (or .env) and
// returns the dataset token.
func loadToken(cmd *cobra.Command) (string, error) {
	var files []string
	if envFile, _ := cmd.Flags().GetString("env-file"); envFile != "" {
		files = append(files, envFile)
	}
	if err := config.LoadEnv(files...); err != nil {
		return "", fmt.Errorf("failed to load environment file: %w", err)
	}
	return config.TokenFromEnv(), nil
}

// buildConfig creates a Config from the configuration file, the
// environment and the command flags, in increasing precedence.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadFileConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Token, err = loadToken(cmd); err != nil {
		return nil, err
	}
	if err := applyJobFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if err := applyReportFlags(cmd, cfg); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	return cfg, nil
}

// applyJobFlags copies the job flags that were given onto cfg.
func applyJobFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	var err error

	if flags.Changed("data-domain") {
		if cfg.DataDomain, err = flags.GetString("data-domain"); err != nil {
			return err
		}
	}
	if flags.Changed("data-group") {
		if cfg.DataGroup, err = flags.GetString("data-group"); err != nil {
			return err
		}
	}
	if flags.Changed("output-dataset") {
		if cfg.OutputDataset, err = flags.GetString("output-dataset"); err != nil {
			return err
		}
	}
	if flags.Changed("lookback") {
		if cfg.LookbackDays, err = flags.GetInt("lookback"); err != nil {
			return err
		}
	}
	if flags.Changed("prefix-length") {
		if cfg.PrefixLength, err = flags.GetInt("prefix-length"); err != nil {
			return err
		}
	}
	if flags.Changed("enumerate-pageviews") {
		if cfg.EnumeratePageViews, err = flags.GetBool("enumerate-pageviews"); err != nil {
			return err
		}
	}
	if flags.Changed("concurrency") {
		if cfg.Concurrency, err = flags.GetInt("concurrency"); err != nil {
			return err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if flags.Changed("problem-threshold") {
		if cfg.Thresholds.Problems, err = flags.GetFloat64("problem-threshold"); err != nil {
			return err
		}
	}
	if flags.Changed("search-threshold") {
		if cfg.Thresholds.Searches, err = flags.GetFloat64("search-threshold"); err != nil {
			return err
		}
	}
	if flags.Changed("quintiles") {
		if cfg.Quintiles, err = flags.GetBool("quintiles"); err != nil {
			return err
		}
	}
	if noSearch, _ := flags.GetBool("no-search"); noSearch {
		cfg.SearchFamilies = false
	}
	if flags.Changed("family-root") {
		roots, err := flags.GetStringSlice("family-root")
		if err != nil {
			return err
		}
		cfg.FamilyRoots = append(cfg.FamilyRoots, roots...)
	}
	if flags.Changed("urls-file") {
		if cfg.FamilyFile, err = flags.GetString("urls-file"); err != nil {
			return err
		}
	}
	if flags.Changed("archive-dir") {
		if cfg.ArchiveDir, err = flags.GetString("archive-dir"); err != nil {
			return err
		}
	}
	if noArchive, _ := flags.GetBool("no-archive"); noArchive {
		cfg.ArchiveDir = ""
	}
	if noDB, _ := flags.GetBool("no-db"); noDB {
		cfg.SaveToDB = false
	}
	if noPublish, _ := flags.GetBool("no-publish"); noPublish {
		cfg.Publish = false
	}
	if cfg.EmptyFirst, err = flags.GetBool("empty-first"); err != nil {
		return err
	}
	return nil
}

// applyReportFlags copies the run-only flags onto cfg. Commands without
// them leave cfg unchanged.
func applyReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Lookup("end-date") == nil {
		return nil
	}

	if s, _ := flags.GetString("end-date"); s != "" {
		end, err := time.Parse(model.DateLayout, s)
		if err != nil {
			return fmt.Errorf("invalid --end-date %q (format: YYYY-MM-DD): %w", s, err)
		}
		cfg.EndDate = end
	}

	var err error
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return err
	}
	return nil
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// newResolver combines the configured family sources. With none
// configured it resolves no roots and the rollup is skipped.
func newResolver(cfg *config.Config, hc *http.Client, logger *slog.Logger) family.Resolver {
	var resolvers []family.Resolver
	if cfg.SearchFamilies {
		resolvers = append(resolvers, family.NewSearch(cfg.SearchURL, cfg.FamilyFormats,
			family.WithHTTPClient(hc),
			family.WithLogger(logger),
		))
	}
	if cfg.FamilyFile != "" {
		resolvers = append(resolvers, family.NewFile(cfg.FamilyFile, cfg.FamilyFormats...))
	}
	if len(cfg.FamilyRoots) > 0 {
		resolvers = append(resolvers, family.NewStatic(cfg.FamilyRoots...))
	}
	if len(resolvers) == 0 {
		return family.NewStatic()
	}
	return family.NewCombined(resolvers...)
}

// newRunner wires the production collaborators for cfg. The returned
// cleanup function closes the history database.
func newRunner(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*pipeline.Runner, func(), error) {
	hc := &http.Client{Timeout: cfg.Timeout}

	deps := pipeline.Deps{
		Resolver: newResolver(cfg, hc, logger),
		Fetcher: platform.NewClient(cfg.DataDomain, cfg.DataGroup,
			platform.WithHTTPClient(hc),
			platform.WithUserAgent(cfg.UserAgent),
			platform.WithLogger(logger),
			platform.WithMetrics(m),
		),
		Metrics: m,
		Logger:  logger,
	}
	if cfg.ArchiveDir != "" {
		deps.Archiver = report.NewArchiveWriter(cfg.ArchiveDir)
	}
	if cfg.Publish {
		deps.Publisher = platform.NewPublisher(cfg.DataDomain, cfg.DataGroup, cfg.Token,
			platform.WithPublishLogger(logger),
			platform.WithPublishMetrics(m),
		)
	}

	cleanup := func() {}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("database opened", "path", db.Path())
		deps.Store = db
		cleanup = func() {
			if err := db.Close(); err != nil {
				logger.Error("failed to close database", "error", err)
			}
		}
	}

	return pipeline.NewRunner(cfg, deps), cleanup, nil
}

// openOutput returns stdout, or the file at path created with owner-only
// permissions. The returned function closes the file.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // output path is chosen by the operator
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// newReportWriter selects the summary format.
func newReportWriter(jsonOut, markdownOut bool, w io.Writer) report.Writer {
	switch {
	case jsonOut:
		return report.NewJSONWriter(w, report.WithPrettyPrint())
	case markdownOut:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w)
	}
}

// outputSummary writes the run summary in the requested format.
func outputSummary(cfg *config.Config, summary *model.Summary, stdout io.Writer) error {
	w, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	if _, err := newReportWriter(cfg.JSONReport, cfg.MarkdownReport, w).Write(summary); err != nil {
		_ = closeOutput()
		return err
	}
	return closeOutput()
}
