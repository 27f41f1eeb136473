package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/mekaem/atc/config"
	"github.com/mekaem/atc/fleet"
	"github.com/mekaem/atc/fleet/health"
)

func runHealth(args []string) error {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	var (
		configPath string
		services   string
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&services, "services", "", "comma-separated services to probe (default: all)")
	fs.BoolVar(&verbose, "v", false, "show probe latency")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	names := splitList(services)
	if len(names) == 0 {
		names = fleet.CatalogNames()
	}

	prober := health.NewProber(cfg.Network.Domain, health.WithLogger(logger))
	for _, name := range names {
		printHealthStatus(prober.Check(context.Background(), name), verbose)
	}
	return nil
}

// printHealthStatus always prints a result, including the worst case: an
// unreachable service is an answer, not a silent failure.
func printHealthStatus(status health.Status, verbose bool) {
	var indicator string
	switch status.State {
	case health.Healthy:
		indicator = green("✓")
	case health.Degraded:
		indicator = yellow("!")
	default:
		indicator = red("✗")
	}

	fmt.Printf("%s %s ", indicator, bold(status.Service))
	if verbose {
		fmt.Println()
		fmt.Printf("  latency: %dms\n", status.LatencyMS)
		if status.Details != "" {
			fmt.Printf("  details: %s\n", status.Details)
		}
	} else {
		fmt.Printf("- %s\n", status.State)
	}
}
