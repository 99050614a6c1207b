package main

import (
	"github.com/spf13/cobra"

	"sectorflow/internal/display"
	"sectorflow/internal/services"
)

type thresholdFlags struct {
	moneyMultiplier    float64
	minAmount          float64
	minPriceChange     float64
	enhancedMultiplier float64
	maxLag             int
	minGain            float64
	workers            int
}

func (t *thresholdFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&t.moneyMultiplier, "money-multiplier", 0, "large-order amount must exceed its 30-minute mean times this")
	f.Float64Var(&t.minAmount, "min-amount", 0, "absolute large-order floor in TWD")
	f.Float64Var(&t.minPriceChange, "min-price-change", 0, "minimum one-minute return of a leader")
	f.Float64Var(&t.enhancedMultiplier, "enhanced-multiplier", 0, "multiplier for enhanced signals")
	f.IntVar(&t.maxLag, "max-lag", 0, "follower window in minutes")
	f.Float64Var(&t.minGain, "min-gain", 0, "minimum follower gain in percent")
	f.IntVar(&t.workers, "workers", 0, "symbols matched in parallel")
}

// apply copies the flags the user set onto the analysis section.
func (t *thresholdFlags) apply(cmd *cobra.Command, c *cli) error {
	a := &c.cfg.Analysis
	f := cmd.Flags()
	if f.Changed("money-multiplier") {
		a.MoneyMultiplier = t.moneyMultiplier
	}
	if f.Changed("min-amount") {
		a.MinAmount = t.minAmount
	}
	if f.Changed("min-price-change") {
		a.MinPriceChange = t.minPriceChange
	}
	if f.Changed("enhanced-multiplier") {
		a.EnhancedMultiplier = t.enhancedMultiplier
	}
	if f.Changed("max-lag") {
		a.MaxLagMinutes = t.maxLag
	}
	if f.Changed("min-gain") {
		a.MinGain = t.minGain
	}
	if f.Changed("workers") {
		a.Workers = t.workers
	}
	return c.cfg.Validate()
}

func newAnalyzeCmd(c *cli) *cobra.Command {
	var (
		start, end, sector, stocks string
		dryRun                     bool
		thresholds                 thresholdFlags
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyse one sector over a range of months",
		Example: `  sectorflow analyze --sector DJ_IC基板 --start 202406 --end 202406
  sectorflow analyze --sector DJ_PCB --start 202401 --end 202403 --min-gain 0.8 --dry-run`,
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

			svc := services.NewAnalysisService(settings, c.logger)
			res, err := svc.Analyze(cmd.Context(), services.AnalysisRequest{
				Sector: sector,
				Start:  start,
				End:    end,
				Stocks: csvList(stocks),
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			display.Print(cmd.OutOrStdout(), display.AnalysisSummary(res))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "first month, YYYYMM")
	cmd.Flags().StringVar(&end, "end", "", "last month, YYYYMM")
	cmd.Flags().StringVar(&sector, "sector", "", "sector name, e.g. DJ_IC基板")
	cmd.Flags().StringVar(&stocks, "stocks", "", "comma separated stocks instead of the sector list")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "analyse without writing output files")
	thresholds.register(cmd)
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")
	cmd.MarkFlagRequired("sector")
	return cmd
}
