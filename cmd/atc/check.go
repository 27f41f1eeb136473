package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mekaem/atc/config"
	"github.com/mekaem/atc/fleet"
	"github.com/mekaem/atc/fleet/ready"
)

func runCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var (
		configPath string
		noDNS      bool
		noHTTPS    bool
		noWS       bool
		noDocker   bool
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.BoolVar(&noDNS, "no-dns", false, "skip the DNS resolution stage")
	fs.BoolVar(&noHTTPS, "no-https", false, "skip the HTTPS reachability stage")
	fs.BoolVar(&noWS, "no-ws", false, "skip the WebSocket reachability stage")
	fs.BoolVar(&noDocker, "no-docker", false, "skip the docker dependency check")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger()
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	failed := false

	sel := readySelection{DNS: !noDNS, HTTPS: !noHTTPS, WebSocket: !noWS}
	gate := ready.NewGate(ready.WithLogger(logger))
	if !printReadyChecks(ctx, os.Stdout, gate, cfg.Network.Domain, sel) {
		failed = true
	}

	if !noDocker {
		ctrl := fleet.NewController("docker-compose.yml")
		ctrl.Logger = logger
		if err := ctrl.CheckDependencies(ctx); err != nil {
			fmt.Printf("Docker dependencies: %s\n", pass(false))
			return err
		}
		fmt.Printf("Docker dependencies: %s\n", pass(true))
	}

	if failed {
		return fmt.Errorf("environment checks failed")
	}
	fmt.Println(green("Environment check completed successfully!"))
	return nil
}

// readySelection names the reachability stages to run. Stages are
// independently skippable.
type readySelection struct {
	DNS       bool
	HTTPS     bool
	WebSocket bool
}

// printReadyChecks runs the selected stages, printing one line per stage.
// Every selected stage runs regardless of earlier failures; the return
// value reports whether all of them passed.
func printReadyChecks(ctx context.Context, w io.Writer, gate *ready.Gate, domain string, sel readySelection) bool {
	ok := true
	if sel.DNS {
		r := gate.CheckDNS(ctx, domain)
		fmt.Fprintf(w, "DNS resolution: %s\n", pass(r))
		ok = ok && r
	}
	if sel.HTTPS {
		r := gate.CheckHTTPS(ctx, domain)
		fmt.Fprintf(w, "HTTPS endpoint: %s\n", pass(r))
		ok = ok && r
	}
	if sel.WebSocket {
		r := gate.CheckWebSocket(ctx, domain)
		fmt.Fprintf(w, "WebSocket endpoint: %s\n", pass(r))
		ok = ok && r
	}
	return ok
}
