package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/noticias/pkg/storage"
)

func newMigrateCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "migrate",
		Description: "Apply pending database migrations",
		Flags:       flag.NewFlagSet("migrate", flag.ContinueOnError),
	}
	status := cmd.Flags.Bool("status", false, "Print the schema version without migrating")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		ctx := context.Background()

		db, dialect, err := env.OpenDB(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if *status {
			version, err := storage.SchemaVersion(ctx, db)
			if err != nil {
				// no schema_migrations table yet
				env.Logger.WithError(err).Debug("Schema version unavailable")
				version = 0
			}
			fmt.Fprintf(env.out(), "Schema version %d (latest %d)\n", version, storage.LatestVersion())
			return nil
		}

		applied, err := storage.Migrate(ctx, db, dialect)
		if err != nil {
			env.Logger.WithError(err).Error("Migration failed")
			return err
		}
		env.Logger.WithField("applied", applied).Info("Migrations complete")
		fmt.Fprintf(env.out(), "Applied %d migrations, schema version %d\n", applied, storage.LatestVersion())
		return nil
	}

	return cmd
}
