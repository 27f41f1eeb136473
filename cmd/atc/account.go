package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/mekaem/atc/api"
	"github.com/mekaem/atc/config"
)

func runCreateAccount(args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	var (
		configPath string
		handle     string
		email      string
		password   string
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&handle, "handle", "", "account handle (required)")
	fs.StringVar(&email, "email", "", "account email (required)")
	fs.StringVar(&password, "password", "", "account password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if handle == "" || email == "" || password == "" {
		return fmt.Errorf("-handle, -email and -password are required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	client := api.NewPDSClient(cfg.Network.Domain)
	client.Logger = newLogger()

	account, err := client.CreateAccount(context.Background(), handle, email, password)
	if err != nil {
		return err
	}

	fmt.Println(green("Account created successfully!"))
	fmt.Printf("DID: %s\n", account.DID)
	fmt.Printf("Handle: %s\n", account.Handle)
	return nil
}
