package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/infostats/internal/database"
	"github.com/nao1215/infostats/internal/model"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
// It lists recorded runs and compares the rows of two runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs and compare their results",
		Long: `History shows the runs recorded in the history database.

With --compare it reports how the latest run differs from the previous
successful run (or from --with-run-id):
- pages that appeared or disappeared
- the pages whose problemsNormalised moved the most

Examples:
  # List the last 20 runs
  infostats history

  # Compare the latest run with the previous one
  infostats history --compare

  # Compare with a specific run and write Markdown
  infostats history --compare --with-run-id 6f1c... --markdown`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit,
		"Number of runs to list (0 lists all)")
	cmd.Flags().Bool("compare", false,
		"Compare the latest run with an earlier one")
	cmd.Flags().StringP("with-run-id", "i", "",
		"Compare with this run instead of the previous one (use history to see IDs)")
	cmd.Flags().Int("top", model.DefaultTopN,
		"Number of movers listed in a comparison")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("db-dir"); dir != "" {
		cfg.DBDir = dir
	}

	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	withRunID, err := cmd.Flags().GetString("with-run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if !compare && withRunID == "" {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}
		return listRuns(ctx, db, limit, out)
	}

	topN, err := cmd.Flags().GetInt("top")
	if err != nil {
		return err
	}
	comparison, err := compareRuns(ctx, db, withRunID, topN)
	if err != nil {
		return err
	}
	_, err = newReportWriter(jsonOutput, markdownOutput, out).WriteComparison(comparison)
	return err
}

// runLister is the part of the history database used for listing.
type runLister interface {
	ListRuns(ctx context.Context, limit int) ([]database.RunMetadata, error)
}

// listRuns prints a table of recorded runs, newest first.
func listRuns(ctx context.Context, db runLister, limit int, out io.Writer) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found in the database.")
		fmt.Fprintln(out, "\nUse 'infostats run' to build the dataset.")
		return nil
	}

	fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-16s  %-10s  %7s  %-9s  %s\n", "ID", "Started", "Window end", "Rows", "Published", "Status")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))

	for _, meta := range runs {
		status := "ok"
		if meta.Error != "" {
			status = truncate(meta.Error, 30)
		}
		fmt.Fprintf(out, "  %-36s  %-16s  %-10s  %7d  %-9s  %s\n",
			meta.ID,
			meta.StartedAt.Local().Format("2006-01-02 15:04"),
			windowDate(meta.WindowEnd),
			meta.RowCount,
			yesNo(meta.Published),
			status,
		)
	}
	fmt.Fprintln(out, "\nUse 'infostats history --compare' to compare the latest run with the previous one.")
	return nil
}

// runFinder is the part of the history database used for comparisons.
type runFinder interface {
	GetRun(ctx context.Context, id string) (*model.Run, error)
	GetLatestRun(ctx context.Context) (*model.Run, error)
	PreviousRun(ctx context.Context, run *model.Run) (*model.Run, error)
}

// compareRuns compares the latest run with the run baseID, or with the
// previous successful run when baseID is empty.
func compareRuns(ctx context.Context, db runFinder, baseID string, topN int) (*model.Comparison, error) {
	target, err := db.GetLatestRun(ctx)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			return nil, errors.New("no runs recorded yet (use 'infostats run' first)")
		}
		return nil, err
	}

	var base *model.Run
	if baseID != "" {
		base, err = db.GetRun(ctx, baseID)
		if errors.Is(err, database.ErrRunNotFound) {
			return nil, fmt.Errorf("run %s not found (use 'infostats history' to see IDs)", baseID)
		}
	} else {
		base, err = db.PreviousRun(ctx, target)
		if errors.Is(err, database.ErrRunNotFound) {
			return nil, errors.New("at least two runs are required for a comparison")
		}
	}
	if err != nil {
		return nil, err
	}
	if base.ID == target.ID {
		return nil, fmt.Errorf("run %s is the latest run; choose an earlier one", base.ID)
	}

	return model.Compare(base, target, topN), nil
}

// windowDate shortens a window timestamp to its date.
func windowDate(ts string) string {
	if len(ts) >= len(model.DateLayout) {
		return ts[:len(model.DateLayout)]
	}
	return ts
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
