package cli

import (
	"flag"
	"fmt"
)

func newVersionCommand(env *Env) *Command {
	return &Command{
		Name:        "version",
		Description: "Print the application version",
		Flags:       flag.NewFlagSet("version", flag.ContinueOnError),
		Run: func([]string) error {
			fmt.Fprintf(env.out(), "%s %s\n", env.Config.App.Name, env.Config.App.Version)
			return nil
		},
	}
}
