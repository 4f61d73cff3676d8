package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/marldb/marl"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity to the configured deployment",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := marl.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg.Logger = slog.Default()

		ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
		defer cancel()

		client, err := marl.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		if err := client.Ping(ctx); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}

		fmt.Printf("ok: %s\n", cfg.Database)
		return nil
	},
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 10*time.Second, "Connection timeout")
	rootCmd.AddCommand(pingCmd)
}
