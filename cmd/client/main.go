package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/punchclock/internal/client/cli"
	"github.com/dmitrijs2005/punchclock/internal/client/config"
)

func main() {

	ctx := context.Background()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cli.NewApp(cfg).Run(ctx); err != nil {
		os.Exit(1)
	}

}
