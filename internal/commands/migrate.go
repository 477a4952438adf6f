package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"detetive/internal/config"
	"detetive/internal/storage"
)

type migrateFlags struct {
	dialect string
	dsn     string
}

func newMigrateCommand(env *environment) *cobra.Command {
	flags := &migrateFlags{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the relational schema",
	}
	cmd.PersistentFlags().StringVar(&flags.dialect, "dialect", "", "sqlite or postgres (default: the backend configured for accounts)")
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "database path or URL (default: SQLITE_DB_PATH or DATABASE_URL)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, dsn, err := flags.resolve(env)
				if err != nil {
					return err
				}
				if err := storage.RunMigrations(d, dsn); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", d)
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, dsn, err := flags.resolve(env)
				if err != nil {
					return err
				}
				if err := storage.RollbackMigration(d, dsn); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema rolled back one step\n", d)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				d, dsn, err := flags.resolve(env)
				if err != nil {
					return err
				}
				v, dirty, err := storage.MigrationVersion(d, dsn)
				if err != nil {
					return err
				}
				state := "clean"
				if dirty {
					state = "dirty"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s schema version %d (%s)\n", d, v, state)
				return nil
			},
		},
	)
	return cmd
}

// resolve picks the dialect and DSN from flags, falling back to the
// configuration.
func (f *migrateFlags) resolve(env *environment) (storage.Dialect, string, error) {
	dialect := f.dialect
	if dialect == "" {
		dialect = env.cfg.BackendFor(config.DomainAccounts)
	}

	var d storage.Dialect
	dsn := f.dsn
	switch dialect {
	case string(storage.SQLite):
		d = storage.SQLite
		if dsn == "" {
			dsn = env.cfg.SQLiteDBPath
		}
	case string(storage.Postgres):
		d = storage.Postgres
		if dsn == "" {
			dsn = env.cfg.DatabaseURL
		}
	default:
		return "", "", fmt.Errorf("dialect %q has no schema: use --dialect sqlite or postgres", dialect)
	}
	if dsn == "" {
		return "", "", fmt.Errorf("no database configured for %s: pass --dsn", d)
	}
	return d, dsn, nil
}
