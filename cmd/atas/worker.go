package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/atas-platform/atas/application/service"
)

func workerCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the embedding worker and backfill sweep without HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			client, slogger, err := openClient(cfg, "starting atas worker")
			if err != nil {
				return err
			}
			defer closeClient(client, slogger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func migrateDimensionCmd(envFile *string) *cobra.Command {
	var (
		dim   int
		kinds string
	)

	cmd := &cobra.Command{
		Use:   "migrate-dimension",
		Short: "Change the stored vector width and queue every entity for re-embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dim <= 0 {
				return fmt.Errorf("--dim must be positive")
			}
			parsed, err := service.Kinds(kinds)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			client, slogger, err := openClient(cfg, "migrating embedding dimension")
			if err != nil {
				return err
			}
			defer closeClient(client, slogger)

			queued, err := client.Maintenance.MigrateDimension(cmd.Context(), dim, parsed...)
			if err != nil {
				return fmt.Errorf("migrate dimension: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %d dimensions, queued %d entities\n", dim, queued)
			return nil
		},
	}

	cmd.Flags().IntVar(&dim, "dim", 0, "New vector width")
	cmd.Flags().StringVar(&kinds, "kind", "all", "Which vectors: profile, event or all")
	_ = cmd.MarkFlagRequired("dim")

	return cmd
}

func reembedCmd(envFile *string) *cobra.Command {
	var kinds string

	cmd := &cobra.Command{
		Use:   "reembed",
		Short: "Queue every profile and/or event for re-embedding",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := service.Kinds(kinds)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(*envFile)
			if err != nil {
				return err
			}
			client, slogger, err := openClient(cfg, "queueing re-embedding")
			if err != nil {
				return err
			}
			defer closeClient(client, slogger)

			queued, err := client.Maintenance.Reembed(cmd.Context(), parsed...)
			if err != nil {
				return fmt.Errorf("reembed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d entities\n", queued)
			return nil
		},
	}

	cmd.Flags().StringVar(&kinds, "kind", "all", "Which vectors: profile, event or all")

	return cmd
}
