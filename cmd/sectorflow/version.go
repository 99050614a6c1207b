package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"sectorflow/internal/config"
	"sectorflow/internal/infrastructure"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s %s/%s)\n",
				config.AppName, infrastructure.ServiceVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
