package main

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"sectorflow/internal/batch"
	"sectorflow/internal/display"
	"sectorflow/internal/services"
	"sectorflow/internal/validation"
)

func newBatchCmd(c *cli) *cobra.Command {
	var (
		start, end, sectors, exclude string
		concurrency                  int
		dryRun                       bool
		thresholds                   thresholdFlags
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyse many sectors and write a batch summary",
		Long: `batch analyses every sector in the sector directory, or the ones named with
--sectors, and writes batch_analysis_summary.txt to the output directory.
A failing or timed out sector does not stop the others.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := thresholds.apply(cmd, c); err != nil {
				return err
			}
			settings, err := services.SettingsFromConfig(c.cfg)
			if err != nil {
				return err
			}
			if err := settings.Paths.EnsureDirectories(); err != nil {
				return err
			}
			if err := validation.NewDirValidator(c.logger).OutputDir(settings.Paths.OutputDir); err != nil {
				return err
			}

			opts := batch.Options{
				Concurrency:   c.cfg.Batch.Concurrency,
				SectorTimeout: c.cfg.Batch.SectorTimeout,
				Exclude:       append(c.cfg.Batch.Exclude, csvList(exclude)...),
				DryRun:        dryRun,
			}
			if cmd.Flags().Changed("concurrency") {
				opts.Concurrency = concurrency
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			progress := batch.SinkFunc(func(e batch.Event) {
				if e.Type != batch.EventSectorFinished || e.Outcome == nil {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "[%d/%d] %s: %s\n", e.Completed, e.Total, e.Sector, e.Outcome.Status)
			})

			svc := services.NewAnalysisService(settings, c.logger)
			runner := batch.NewRunner(svc, opts, progress, c.logger)
			summary, runErr := runner.Run(cmd.Context(), batch.Request{
				Sectors: csvList(sectors),
				Start:   start,
				End:     end,
			})
			if summary == nil {
				return runErr
			}

			path, err := batch.WriteSummary(settings.Paths.OutputDir, summary)
			if err != nil {
				return errors.Join(runErr, err)
			}
			display.Print(out, display.BatchTable(summary))
			fmt.Fprintf(out, "Summary written to %s\n", path)
			return runErr
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first month, YYYYMM")
	cmd.Flags().StringVar(&end, "end", "", "last month, YYYYMM")
	cmd.Flags().StringVar(&sectors, "sectors", "", "comma separated sectors (default: all)")
	cmd.Flags().StringVar(&exclude, "exclude", "", "comma separated sectors to skip")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "sectors analysed at once")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "analyse without writing per-sector output")
	thresholds.register(cmd)
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}
