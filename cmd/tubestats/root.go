package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"thirdcoast.systems/tubestats/internal/application"
	"thirdcoast.systems/tubestats/internal/config"
	"thirdcoast.systems/tubestats/internal/tables"
)

// cli carries the loaded configuration to subcommands.
type cli struct {
	cfg *config.Config

	rawDir       string
	processedDir string
	backend      string
	logLevel     string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:           "tubestats",
		Short:         "Fetch, transform and analyze a YouTube channel",
		Long:          "tubestats snapshots a channel's videos and comments from the YouTube Data API, flattens them into tables and computes descriptive statistics.",
		Version:       currentVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}
	rootCmd.SetVersionTemplate("tubestats version {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.rawDir, "raw-dir", "", "Raw snapshot directory (RAW_DIR)")
	flags.StringVar(&c.processedDir, "processed-dir", "", "Processed table directory (PROCESSED_DIR)")
	flags.StringVar(&c.backend, "backend", "", "Table backend: dir or postgres (TABLE_BACKEND)")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error (LOG_LEVEL)")

	rootCmd.AddCommand(newFetchCmd(c))
	rootCmd.AddCommand(newTransformCmd(c))
	rootCmd.AddCommand(newAnalyzeCmd(c))
	rootCmd.AddCommand(newServeCmd(c))
	rootCmd.AddCommand(newMigrateCmd(c))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// load reads .env and the environment, then applies flag overrides.
func (c *cli) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(cmd.Context())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("raw-dir") {
		cfg.RawDir = c.rawDir
	}
	if flags.Changed("processed-dir") {
		cfg.ProcessedDir = c.processedDir
	}
	if flags.Changed("backend") {
		if c.backend != "dir" && c.backend != "postgres" {
			return fmt.Errorf("invalid backend %q: must be 'dir' or 'postgres'", c.backend)
		}
		cfg.TableBackend = c.backend
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.Debug("Loaded configuration", "config", cfg)

	c.cfg = cfg
	return nil
}

// openTables returns the configured table backend and its release func.
func (c *cli) openTables(ctx context.Context) (tables.Store, func(), error) {
	switch c.cfg.TableBackend {
	case "postgres":
		if c.cfg.DatabaseDSN == "" {
			return nil, nil, fmt.Errorf("DATABASE_DSN is required for the postgres backend")
		}
		store, closeFn, err := application.OpenTableStore(ctx, *c.cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, closeFn, nil
	default:
		return tables.NewDirStore(c.cfg.ProcessedDir, tables.WithCSVExport(c.cfg.CSVExport)), func() {}, nil
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tubestats version %s\n", currentVersion())
		},
	}
}
