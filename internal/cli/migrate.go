package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Strob0t/tbd/internal/adapter/postgres"
)

var errNoDSN = errors.New("postgres.dsn (or DATABASE_URL) is required for migrations")

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Postgres.DSN == "" {
				return errNoDSN
			}
			if err := postgres.RunMigrations(cmd.Context(), a.cfg.Postgres.DSN); err != nil {
				return err
			}
			return printVersion(a, cmd)
		}),
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Postgres.DSN == "" {
				return errNoDSN
			}
			if err := postgres.RollbackMigrations(cmd.Context(), a.cfg.Postgres.DSN, steps); err != nil {
				return err
			}
			return printVersion(a, cmd)
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Postgres.DSN == "" {
				return errNoDSN
			}
			return printVersion(a, cmd)
		}),
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(a *app, cmd *cobra.Command) error {
	v, err := postgres.MigrationVersion(cmd.Context(), a.cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "schema version %d\n", v)
	return nil
}
