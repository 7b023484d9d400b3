package cli

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/platinummonkey/noticias/pkg/cache"
	"github.com/platinummonkey/noticias/pkg/users"
)

func newUserService(ctx context.Context, env *Env) (*users.Service, func() error, error) {
	db, dialect, err := env.openMigrated(ctx)
	if err != nil {
		return nil, nil, err
	}
	return users.NewService(users.NewStore(db, dialect), cache.NewStore(time.Minute)), db.Close, nil
}

func newSeedCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "seed",
		Description: "Create the default superadmin and admin accounts",
		Flags:       flag.NewFlagSet("seed", flag.ContinueOnError),
	}
	password := cmd.Flags.String("password", "", "Password for the default accounts (defaults to the configured seed password)")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}
		pw := *password
		if pw == "" {
			pw = env.Config.Seed.DefaultPassword
		}
		if pw == "" {
			return fmt.Errorf("a password is required")
		}

		ctx := context.Background()
		svc, closeDB, err := newUserService(ctx, env)
		if err != nil {
			return err
		}
		defer closeDB()

		created, err := svc.SeedDefaultAccounts(ctx, pw)
		if err != nil {
			return err
		}
		env.Logger.WithField("created", created).Info("Default accounts seeded")
		fmt.Fprintf(env.out(), "Created %d of %d default accounts\n", created, len(users.DefaultAccounts))
		return nil
	}

	return cmd
}
