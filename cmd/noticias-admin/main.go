package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/noticias/pkg/cli"
	"github.com/platinummonkey/noticias/pkg/config"
	"github.com/platinummonkey/noticias/pkg/storage"
	"github.com/platinummonkey/noticias/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	env := &cli.Env{
		Config: cfg,
		Logger: setupLogger(cfg.Observability.LogLevel.String()),
		Out:    os.Stdout,
		OpenDB: func(ctx context.Context) (*sql.DB, storage.Dialect, error) {
			db, err := postgres.Open(ctx, cfg.Database)
			return db, storage.Postgres, err
		},
	}

	if err := cli.NewRootCommand(env).Execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
