package main

import (
	"fmt"

	"financial-movement/internal/app"
	"financial-movement/internal/config"

	"github.com/spf13/cobra"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Consume transaction commands and run the saga steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(*configPath)
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("error creating an application instance: %w", err)
			}

			return a.Run(cmd.Context())
		},
	}
}
