package main

import (
	"fmt"

	"github.com/nao1215/infostats/internal/config"
	"github.com/nao1215/infostats/internal/platform"
	"github.com/nao1215/infostats/internal/report"
	"github.com/spf13/cobra"
)

// NewPublishCmd creates the publish command.
func NewPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <archive-file>",
		Short: "Publish an archived result file",
		Long: `Publish posts the rows of an archive written by an earlier run
(data-YYYY-MM-DD.json) to the output dataset without querying anything.
Use it to retry a failed publish or to restore an earlier result.

Examples:
  # Republish last week's archive, replacing the dataset contents
  infostats publish --empty-first ~/.local/share/infostats/results/data-2014-06-30.json`,
		Args: cobra.ExactArgs(1),
		RunE: runPublishCmd,
	}

	cmd.Flags().String("data-domain", config.DefaultDataDomain,
		"Root URL of the statistics service API")
	cmd.Flags().String("data-group", config.DefaultDataGroup,
		"Data group of the output dataset")
	cmd.Flags().String("output-dataset", config.DefaultOutputDataset,
		"Dataset the rows are published to")
	cmd.Flags().Bool("empty-first", false,
		"Clear the output dataset before publishing")
	cmd.Flags().String("env-file", "",
		"Environment file holding PP_DATASET_TOKEN (default: .env if present)")

	return cmd
}

// runPublishCmd executes the publish command.
func runPublishCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Token, err = loadToken(cmd); err != nil {
		return err
	}
	if cfg.Token == "" {
		return config.ErrMissingToken
	}

	flags := cmd.Flags()
	if flags.Changed("data-domain") {
		cfg.DataDomain, _ = flags.GetString("data-domain")
	}
	if flags.Changed("data-group") {
		cfg.DataGroup, _ = flags.GetString("data-group")
	}
	if flags.Changed("output-dataset") {
		cfg.OutputDataset, _ = flags.GetString("output-dataset")
	}
	emptyFirst, err := flags.GetBool("empty-first")
	if err != nil {
		return err
	}

	rows, err := report.ReadArchive(args[0])
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}

	logger := setupLogger(cmd)
	ctx, stop := signalContext(logger)
	defer stop()

	publisher := platform.NewPublisher(cfg.DataDomain, cfg.DataGroup, cfg.Token,
		platform.WithPublishLogger(logger),
	)
	if emptyFirst {
		if err := publisher.Empty(ctx, cfg.OutputDataset); err != nil {
			return err
		}
	}
	if err := publisher.Publish(ctx, cfg.OutputDataset, rows); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Published %d rows from %s to %s\n", len(rows), args[0], publisher.URL(cfg.OutputDataset))
	return nil
}
