package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sectorflow/internal/display"
	"sectorflow/internal/download"
	"sectorflow/internal/marketdata"
	"sectorflow/internal/validation"
)

func newDownloadCmd(c *cli) *cobra.Command {
	var (
		start, end, sector, stocks string
		dryRun, noExtract          bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Fetch Min and TAMin archives for the stocks of a sector",
		Long: `download runs the configured external command once per stock, month and
archive kind. Archives already on disk are skipped. With --dry-run the
command lines are printed instead of executed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			periods, err := marketdata.ParsePeriodRange(start, end)
			if err != nil {
				return err
			}
			paths, err := c.cfg.Paths.Resolve()
			if err != nil {
				return err
			}

			list := csvList(stocks)
			if len(list) == 0 {
				sectors := csvList(sector)
				if len(sectors) == 0 {
					return errors.New("either --sector or --stocks is required")
				}
				if list, err = download.SectorStocks(paths.SectorDir, sectors); err != nil {
					return err
				}
			}

			dl := c.cfg.Download
			planner := download.Planner{TickBase: dl.TickBase, TABase: dl.TABase, RawDir: paths.RawDir}
			jobs := planner.Plan(list, periods)
			command := download.Command{Name: dl.Command, Args: dl.Args, Server: dl.Server}

			out := cmd.OutOrStdout()
			if dryRun {
				for _, line := range download.CommandLines(command, jobs) {
					fmt.Fprintln(out, line)
				}
				return nil
			}

			if err := validation.NewDirValidator(c.logger).OutputDir(paths.RawDir); err != nil {
				return err
			}
			runner := download.NewRunner(download.Options{
				Command: command,
				Timeout: dl.Timeout,
				Retries: dl.Retries,
				Rate:    dl.Rate,
				Extract: dl.Extract && !noExtract,
			}, c.logger)
			report, err := runner.Run(cmd.Context(), jobs)
			display.Print(out, display.DownloadReport(report))
			if err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d downloads failed", report.Failed, len(jobs))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first month, YYYYMM")
	cmd.Flags().StringVar(&end, "end", "", "last month, YYYYMM")
	cmd.Flags().StringVar(&sector, "sector", "", "sector name, comma separated for several")
	cmd.Flags().StringVar(&stocks, "stocks", "", "comma separated stocks instead of a sector")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the commands without running them")
	cmd.Flags().BoolVar(&noExtract, "no-extract", false, "keep the archives zipped")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	return cmd
}
