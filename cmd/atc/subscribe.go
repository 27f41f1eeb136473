package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mekaem/atc/api"
	"github.com/mekaem/atc/config"
)

func runSubscribe(args []string) error {
	fs := flag.NewFlagSet("subscribe", flag.ContinueOnError)
	var (
		configPath  string
		collections string
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&collections, "collections", "", "comma-separated collections (default: the standard set)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	wanted := splitList(collections)
	if len(wanted) == 0 {
		wanted = api.StandardCollections
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewJetstreamClient(cfg.Network.Domain)
	client.Logger = newLogger()

	return client.Subscribe(ctx, wanted, func(message []byte) {
		fmt.Fprintln(os.Stdout, string(message))
	})
}
