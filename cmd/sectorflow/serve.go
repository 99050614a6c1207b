package main

import (
	"github.com/spf13/cobra"

	"sectorflow/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the batch progress websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				c.cfg.Server.Port = port
				if err := c.cfg.Validate(); err != nil {
					return err
				}
			}

			application, err := app.New(c.cfg, c.logger, c.providers)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "listen port (default: server.port)")
	return cmd
}
