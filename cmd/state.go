package main

import (
	"errors"
	"fmt"
	"sort"

	"financial-movement/internal/cache"
	"financial-movement/internal/config"
	"financial-movement/internal/repositories/redisrepo"

	"github.com/spf13/cobra"
)

func stateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "state [transaction-id]",
		Short: "Print the tracked saga steps of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(*configPath)
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}

			client, err := cache.NewRedis(cmd.Context(), cfg.Redis)
			if err != nil {
				return fmt.Errorf("cache connection error: %w", err)
			}
			defer client.Close()

			repo := redisrepo.NewSagaStateRepository(client, cfg.Redis.StateTTL)
			steps, err := repo.GetSteps(cmd.Context(), args[0])
			if errors.Is(err, redisrepo.ErrSagaNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No saga state for transaction %s\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}

			names := make([]string, 0, len(steps))
			for name := range steps {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", name, steps[name])
			}
			return nil
		},
	}
}
