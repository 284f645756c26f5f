package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendpoints/internal/cli"
	"spendpoints/internal/config"
	applog "spendpoints/internal/log"
	"spendpoints/internal/storage"
)

type rootOptions struct {
	dbPath   string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "budgetctl",
		Short:        "Administer the spendpoints database",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cli.LoadEnvFile()
			opts.cfg = config.Load()
			if !cmd.Flags().Changed("db") {
				opts.dbPath = opts.cfg.SQLiteDBPath
			}
			cli.SetupLogger(opts.logLevel, false, applog.ComponentApp)
		},
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "./data/spendpoints.db", "SQLite database path (defaults to SQLITE_DB_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	root.AddCommand(
		newMigrateCmd(opts),
		newConvertCmd(),
		newReportCmd(opts),
		newHousesCmd(opts),
		newExportCmd(opts),
	)
	return root
}

// openRepo opens the database, applying pending migrations.
func (o *rootOptions) openRepo() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.dbPath, err)
	}
	return repo, nil
}

func (o *rootOptions) logger() *applog.Logger {
	return applog.Default(applog.ComponentApp)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
