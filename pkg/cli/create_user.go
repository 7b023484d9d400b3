package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/platinummonkey/noticias/pkg/users"
)

func newCreateUserCommand(env *Env) *Command {
	cmd := &Command{
		Name:        "create-user",
		Description: "Create an account with any role",
		Flags:       flag.NewFlagSet("create-user", flag.ContinueOnError),
	}
	username := cmd.Flags.String("username", "", "Login name (required)")
	password := cmd.Flags.String("password", "", "Password (required)")
	name := cmd.Flags.String("name", "", "Display name")
	email := cmd.Flags.String("email", "", "Email address")
	role := cmd.Flags.String("role", "usuario", "Role: superadmin, admin, maestro or usuario")

	cmd.Run = func(args []string) error {
		if err := cmd.Flags.Parse(args); err != nil {
			return err
		}

		ctx := context.Background()
		svc, closeDB, err := newUserService(ctx, env)
		if err != nil {
			return err
		}
		defer closeDB()

		u, err := svc.CreateUser(ctx, users.CreateUserRequest{
			Username: *username,
			Password: *password,
			Name:     *name,
			Email:    *email,
			Role:     *role,
		})
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", *username, err)
		}

		env.Logger.WithFields(map[string]interface{}{
			"usuario": u.Username,
			"rol":     u.Role,
		}).Info("User created")
		fmt.Fprintf(env.out(), "Created user %s (id %d, role %s)\n", u.Username, u.ID, u.Role)
		return nil
	}

	return cmd
}
