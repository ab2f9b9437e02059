package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"thirdcoast.systems/tubestats/internal/application"
	"thirdcoast.systems/tubestats/internal/db"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the postgres table migrations",
		Long:  "Apply the embedded goose migrations. GOOSE_UP_TO or GOOSE_DOWN_TO select a target version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.DatabaseDSN == "" {
				return fmt.Errorf("DATABASE_DSN is required to run migrations")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			pool, err := application.OpenDBPoolWithRetry(ctx, *c.cfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()
			slog.Info("Database pool connection established")

			dbc, err := db.NewDatabaseConnection(ctx, pool)
			if err != nil {
				return fmt.Errorf("failed to create database connection: %w", err)
			}

			if err := dbc.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
			}

			slog.Info("Database migrations completed successfully")
			return nil
		},
	}
}
