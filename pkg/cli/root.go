package cli

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/storage"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// Env is what commands run against
type Env struct {
	Config *config.Config
	Logger *logrus.Logger
	Out    io.Writer
	// OpenDB connects to the database named by the config
	OpenDB func(ctx context.Context) (*sql.DB, storage.Dialect, error)
}

func (e *Env) out() io.Writer {
	if e.Out == nil {
		return os.Stdout
	}
	return e.Out
}

// NewRootCommand creates the root command
func NewRootCommand(env *Env) *Command {
	if env.Logger == nil {
		env.Logger = logrus.New()
	}
	if env.Config == nil {
		env.Config = config.Default()
	}

	root := &Command{
		Name:        "noticias-admin",
		Description: "Noticias - administration tasks",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("noticias-admin", flag.ContinueOnError),
	}

	root.Subcommands["migrate"] = newMigrateCommand(env)
	root.Subcommands["seed"] = newSeedCommand(env)
	root.Subcommands["create-user"] = newCreateUserCommand(env)
	root.Subcommands["version"] = newVersionCommand(env)

	return root
}

// Execute runs the subcommand named by args[0]
func (c *Command) Execute(args []string, out io.Writer) error {
	if len(args) == 0 {
		return c.usage(out)
	}

	if args[0] == "-h" || args[0] == "--help" {
		return c.usage(out)
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage(out io.Writer) error {
	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(out, "Usage: %s <command> [args]\n\n", c.Name)
	fmt.Fprintf(out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(out, "  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}

// openMigrated opens the database and brings its schema up to date
func (e *Env) openMigrated(ctx context.Context) (*sql.DB, storage.Dialect, error) {
	db, dialect, err := e.OpenDB(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	applied, err := storage.Migrate(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, "", err
	}
	if applied > 0 {
		e.Logger.Infof("Applied %d migrations", applied)
	}
	return db, dialect, nil
}
