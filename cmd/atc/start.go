package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/mekaem/atc/config"
	"github.com/mekaem/atc/fleet"
	"github.com/mekaem/atc/fleet/health"
)

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ContinueOnError)
	var (
		configPath  string
		composeFile string
		services    string
		noDeps      bool
		wait        time.Duration
		timeout     time.Duration
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&composeFile, "f", "docker-compose.yml", "path to compose file")
	fs.StringVar(&services, "services", "", "comma-separated subset of services to start")
	fs.BoolVar(&noDeps, "no-deps", false, "skip the dependency pre-flight")
	fs.DurationVar(&wait, "wait", 0, "wait up to this long for started services to report healthy")
	fs.DurationVar(&timeout, "timeout", 0, "bound each compose invocation (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctrl := fleet.NewController(composeFile)
	ctrl.Env = cfg.EnvVars()
	ctrl.Timeout = timeout
	ctrl.Logger = logger

	var prober fleet.Prober
	if wait > 0 {
		prober = health.NewProber(cfg.Network.Domain, health.WithLogger(logger))
	}

	runner := fleet.Up(ctrl, prober, fleet.UpOptions{
		Services: splitList(services),
		SkipDeps: noDeps,
		Wait:     wait,
	})
	if err := runner.Run(context.Background()); err != nil {
		return err
	}

	fmt.Println(green("Services started successfully!"))
	return nil
}

// splitList parses a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
