package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rouge-eval/backend/internal/cache/redis"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the shared result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached result, e.g. after updating the ROUGE data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cfg.Redis.Enabled {
				return fmt.Errorf("redis is not enabled in the configuration")
			}

			client, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Invalidate(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "result cache cleared")
			return err
		},
	})

	return cmd
}
