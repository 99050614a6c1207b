package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"sectorflow/internal/marketdata"
	"sectorflow/internal/validation"
)

func newConvertCmd(c *cli) *cobra.Command {
	var (
		inputDir, outputDir, stocks string
		workers                     int
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Join raw Min and TAMin text files into per-day CSV bars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := c.cfg.Paths.Resolve()
			if err != nil {
				return err
			}
			if inputDir == "" {
				inputDir = paths.RawDir
			}
			if outputDir == "" {
				outputDir = paths.CSVDir
			}

			v := validation.NewDirValidator(c.logger)
			if err := v.InputDir(inputDir); err != nil {
				return err
			}
			if err := v.OutputDir(outputDir); err != nil {
				return err
			}

			list := csvList(stocks)
			if len(list) == 0 {
				if list, err = stockDirs(v, inputDir); err != nil {
					return err
				}
			}
			if len(list) == 0 {
				return fmt.Errorf("no stock folders in %s", inputDir)
			}

			ctx := cmd.Context()
			var converted, failed atomic.Int64
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(max(workers, 1))
			for _, stock := range list {
				g.Go(func() error {
					n, err := marketdata.ConvertStock(gctx, filepath.Join(inputDir, stock), outputDir, c.logger)
					converted.Add(int64(n))
					if err != nil {
						if ctx.Err() != nil {
							return err
						}
						failed.Add(1)
						c.logger.ErrorContext(gctx, "convert failed", "stock", stock, "error", err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d files from %d stocks (%d failed) into %s\n",
				converted.Load(), len(list), failed.Load(), outputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputDir, "input-dir", "", "raw text root, one folder per stock (default: paths.raw_dir)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "CSV destination (default: paths.csv_dir)")
	cmd.Flags().StringVar(&stocks, "stocks", "", "comma separated stocks (default: every folder)")
	cmd.Flags().IntVar(&workers, "workers", 4, "stocks converted in parallel")
	return cmd
}

// stockDirs lists the folders under root holding at least one Min text file.
func stockDirs(v *validation.DirValidator, root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := v.CountFiles(filepath.Join(root, e.Name()), "Min_*.txt")
		if err != nil {
			return nil, err
		}
		if n > 0 {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
