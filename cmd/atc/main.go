package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	commands := map[string]func(args []string) error{
		"init":           runInit,
		"start":          runStart,
		"stop":           runStop,
		"status":         runStatus,
		"health":         runHealth,
		"check":          runCheck,
		"create-account": runCreateAccount,
		"subscribe":      runSubscribe,
	}

	name := os.Args[1]
	switch name {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "atc: unknown command %q\n", name)
		printUsage()
		os.Exit(1)
	}
	if err := cmd(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "atc %s: %v\n", name, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: atc <command> [flags]

Commands:
  init            Write a fresh config and generated secrets
  start           Start the service group
  stop            Stop the service group
  status          Show an aggregated status snapshot
  health          Probe service health
  check           Check DNS/HTTPS/WebSocket reachability
  create-account  Create a PDS account
  subscribe       Stream Jetstream events

Run 'atc <command> --help' for command-specific flags.
`)
}

// newLogger builds the CLI logger. Set ATC_LOG=debug to see command and
// probe traces.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if strings.EqualFold(os.Getenv("ATC_LOG"), "debug") {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
