package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/infostats/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// DefaultSchedule runs the job every Monday at 06:00.
const DefaultSchedule = "0 6 * * 1"

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// NewScheduleCmd creates the schedule command.
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the job periodically on a cron schedule",
		Long: `Schedule keeps running and builds the dataset on a cron schedule until it is
interrupted. Each run uses the window ending on the day it starts. A run
that is still going when the next one is due makes the next one skip.

Examples:
  # Publish every Monday at 06:00
  infostats schedule

  # Publish daily at 05:30 and expose Prometheus metrics
  infostats schedule --cron "30 5 * * *" --metrics-addr :9090

  # Run once immediately (e.g. from an external scheduler) and exit
  infostats schedule --run-once --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: runScheduleCmd,
	}

	addJobFlags(cmd)

	cmd.Flags().String("cron", DefaultSchedule,
		"Cron expression (minute hour day-of-month month day-of-week)")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool("run-once", false,
		"Run immediately once and exit")

	return cmd
}

// runScheduleCmd executes the schedule command.
func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	expr, err := cmd.Flags().GetString("cron")
	if err != nil {
		return err
	}
	if err := validateSchedule(expr); err != nil {
		return err
	}
	addr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return err
	}
	runOnce, err := cmd.Flags().GetBool("run-once")
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	ctx, stop := signalContext(logger)
	defer stop()

	m := metrics.New(nil)
	runner, cleanup, err := newRunner(cfg, logger, m)
	if err != nil {
		return err
	}
	defer cleanup()

	if addr != "" {
		srv := startMetricsServer(addr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to stop metrics server", "error", err)
			}
		}()
	}

	job := func(ctx context.Context) {
		if _, err := runner.Run(ctx); err != nil {
			logger.Error("scheduled run failed", "error", err)
		}
	}

	if runOnce {
		if _, err := runner.Run(ctx); err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		return nil
	}
	return runSchedule(ctx, expr, job, logger)
}

// validateSchedule checks a standard five-field cron expression.
func validateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// runSchedule calls job on expr until ctx is cancelled, then waits for a
// running job to finish. Overlapping invocations are skipped.
func runSchedule(ctx context.Context, expr string, job func(context.Context), logger *slog.Logger) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	id, err := c.AddFunc(expr, func() {
		logger.Info("starting scheduled run")
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}

	c.Start()
	logger.Info("scheduler started", "cron", expr, "next", c.Entry(id).Next)

	<-ctx.Done()
	logger.Info("stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// startMetricsServer serves /metrics and /health on addr in the
// background.
func startMetricsServer(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"running","service":"infostats"}`))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("metrics endpoint running", "addr", addr, "path", "/metrics")
	return srv
}
