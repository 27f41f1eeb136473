package main

import (
	"flag"
	"fmt"

	"github.com/mekaem/atc/config"
	"github.com/mekaem/atc/fleet"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	var (
		configPath string
		domain     string
		certEmail  string
	)
	fs.StringVar(&configPath, "config", "config.yaml", "path to config file")
	fs.StringVar(&domain, "domain", "", "public domain for the deployment (required)")
	fs.StringVar(&certEmail, "cert-email", "", "email for certificate issuance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if domain == "" {
		return fmt.Errorf("-domain is required")
	}

	cfg := config.Default()
	cfg.Network.Domain = domain
	if certEmail != "" {
		cfg.Email.CertEmail = certEmail
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	secrets := config.GenerateSecrets()
	if err := secrets.Save(fleet.DefaultSecretsFile); err != nil {
		return err
	}

	fmt.Println(green("Secrets generated successfully!"))
	fmt.Println(green("Configuration created successfully!"))
	return nil
}
