package main

import (
	"github.com/spf13/cobra"

	"sectorflow/internal/display"
	"sectorflow/internal/services"
)

func newTuneCmd(c *cli) *cobra.Command {
	var (
		start, end, sector, stocks               string
		multipliers, minAmounts, minPriceChanges []float64
		top                                      int
		thresholds                               thresholdFlags
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Rank signal thresholds over one sector",
		Long: `Load one sector once and run signal detection, follower matching and
aggregation for every combination of the given threshold values. Axes that
are not given keep the configured value. Nothing is written to disk.`,
		Example: `  sectorflow tune --sector DJ_PCB --start 202403 --end 202403 \
    --money-multipliers 1.2,1.3,1.5 --min-amounts 3000000,5000000 --min-price-changes 0.002,0.003`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := thresholds.apply(cmd, c); err != nil {
				return err
			}
			settings, err := services.SettingsFromConfig(c.cfg)
			if err != nil {
				return err
			}

			svc := services.NewAnalysisService(settings, c.logger)
			res, err := svc.Sweep(cmd.Context(), services.SweepRequest{
				Sector:           sector,
				Start:            start,
				End:              end,
				Stocks:           csvList(stocks),
				MoneyMultipliers: multipliers,
				MinAmounts:       minAmounts,
				MinPriceChanges:  minPriceChanges,
			})
			if err != nil {
				return err
			}
			display.Print(cmd.OutOrStdout(), display.SweepTable(res, top))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&start, "start", "", "first month, YYYYMM")
	f.StringVar(&end, "end", "", "last month, YYYYMM")
	f.StringVar(&sector, "sector", "", "sector name, e.g. DJ_IC基板")
	f.StringVar(&stocks, "stocks", "", "comma separated stocks instead of the sector list")
	f.Float64SliceVar(&multipliers, "money-multipliers", nil, "money multipliers to try")
	f.Float64SliceVar(&minAmounts, "min-amounts", nil, "large-order floors to try, in TWD")
	f.Float64SliceVar(&minPriceChanges, "min-price-changes", nil, "minimum one-minute returns to try")
	f.IntVar(&top, "top", 10, "combinations shown, 0 for all")
	thresholds.register(cmd)
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("sector")
	return cmd
}
