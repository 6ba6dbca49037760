package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Proton-105/lessonnotes-bot/internal/database"
	"github.com/Proton-105/lessonnotes-bot/pkg/config"
	"github.com/Proton-105/lessonnotes-bot/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the bundled PostgreSQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				names, err := database.ListMigrations(database.Migrations, "migrations")
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			cfg, _, err := config.Load(resolveEnv(cmd))
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("database.dsn is not configured")
			}

			log := logger.New(*cfg)
			ctx := cmd.Context()

			db, err := database.Open(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := db.Close(); cerr != nil {
					log.Error("error closing database", slog.Any("error", cerr))
				}
			}()

			if err := database.NewMigrator(db, log).Apply(ctx); err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}

			log.Info("database migrations applied")
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "Print the bundled migrations without applying them")

	return cmd
}
