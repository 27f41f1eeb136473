package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/mekaem/atc/fleet"
)

func runStop(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ContinueOnError)
	var (
		composeFile string
		clean       bool
		timeout     time.Duration
	)
	fs.StringVar(&composeFile, "f", "docker-compose.yml", "path to compose file")
	fs.BoolVar(&clean, "clean", false, "also remove persistent volumes (irreversible)")
	fs.DurationVar(&timeout, "timeout", 0, "bound the compose invocation (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger()
	if clean {
		logger.Warn().Msg("stopping services and removing volumes")
	}

	ctrl := fleet.NewController(composeFile)
	ctrl.Timeout = timeout
	ctrl.Logger = logger

	if err := ctrl.Stop(context.Background(), clean); err != nil {
		return err
	}

	fmt.Println(green("Services stopped successfully!"))
	return nil
}
