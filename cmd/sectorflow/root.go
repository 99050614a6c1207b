package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"sectorflow/internal/config"
	"sectorflow/internal/infrastructure"
)

// cli carries what every subcommand needs once the root has run.
type cli struct {
	configFile string
	baseDir    string
	logLevel   string

	cfg       *config.Config
	logger    *slog.Logger
	providers *infrastructure.OTelProviders
	closers   []io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Sector leader/follower analysis",
		Long:          "sectorflow detects stocks whose institutional buying leads the rest of their sector\nand measures how quickly and how far the followers move.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "version", "help", cobra.ShellCompRequestCmd:
				return nil
			}
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "configuration file (YAML)")
	root.PersistentFlags().StringVar(&c.baseDir, "base-dir", "", "data root holding TASave, csv, sectorInfo and output")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCmd(c),
		newBatchCmd(c),
		newConvertCmd(c),
		newDownloadCmd(c),
		newServeCmd(c),
		newTuneCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: c.configFile})
	if err != nil {
		return err
	}
	if c.baseDir != "" {
		cfg.Paths.BaseDir = c.baseDir
	}
	if c.logLevel != "" {
		cfg.Logging.Level = strings.ToLower(c.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	// Command output owns stdout; logs go to stderr.
	logger, closer, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
	slog.SetDefault(logger)
	c.logger = logger

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	c.providers = providers
	return nil
}

func (c *cli) teardown() error {
	if c.providers != nil {
		if err := c.providers.Shutdown(context.Background()); err != nil {
			c.logger.Warn("telemetry shutdown", "error", err)
		}
	}
	for _, cl := range c.closers {
		cl.Close()
	}
	return nil
}

// csvList splits a comma separated flag value, dropping blanks.
func csvList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
