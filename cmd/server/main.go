package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/punchclock/internal/logging"
	"github.com/dmitrijs2005/punchclock/internal/server"
	"github.com/dmitrijs2005/punchclock/internal/server/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {

	ctx := context.Background()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := logging.NewJSON(os.Stdout, cfg.LogLevel)
	if err != nil {
		return err
	}

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Rebuild {
		n, err := app.RebuildSheet(ctx)
		if err != nil {
			return err
		}
		logger.Info(ctx, "rebuild finished", "records", n)
		return nil
	}

	return app.Run(ctx)
}
