package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/mekaem/atc/config"
	"github.com/mekaem/atc/fleet"
	"github.com/mekaem/atc/fleet/health"
)

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	var (
		configPath  string
		composeFile string
		verbose     bool
		probe       bool
		timeout     time.Duration
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&composeFile, "f", "docker-compose.yml", "path to compose file")
	fs.BoolVar(&verbose, "v", false, "include raw process state and port bindings")
	fs.BoolVar(&probe, "probe", false, "also probe service health into the snapshot")
	fs.DurationVar(&timeout, "timeout", 0, "bound the topology query (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctrl := fleet.NewController(composeFile)
	ctrl.Timeout = timeout
	ctrl.Logger = logger

	agg := &fleet.Aggregator{
		Source: ctrl,
		Domain: cfg.Network.Domain,
		Logger: logger,
	}
	if probe {
		agg.Prober = health.NewProber(cfg.Network.Domain, health.WithLogger(logger))
	}
	if verbose {
		agg.Inspector = fleet.Inspector{}
	}

	snapshot, err := agg.Snapshot(context.Background(), verbose)
	if err != nil {
		return err
	}

	fleet.PrintStatus(os.Stdout, snapshot, verbose)
	return nil
}
