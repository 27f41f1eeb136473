// Package config holds the operator settings and generated secrets that the
// fleet consumes as plain key-value environment. Files are YAML on disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the operator-facing settings file.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	Storage StorageConfig `yaml:"storage"`
	Email   EmailConfig   `yaml:"email"`
}

// NetworkConfig describes how the deployment is exposed.
type NetworkConfig struct {
	Domain      string `yaml:"domain"`
	BindAddress string `yaml:"bind_address"`
	UseTLS      bool   `yaml:"use_tls"`
	Ports       Ports  `yaml:"ports"`
}

// Ports are the host ports the deployment binds.
type Ports struct {
	HTTP  uint16 `yaml:"http"`
	HTTPS uint16 `yaml:"https"`
	PDS   uint16 `yaml:"pds"`
	PLC   uint16 `yaml:"plc"`
}

// StorageConfig locates persistent data on the host.
type StorageConfig struct {
	DataDir     string `yaml:"data_dir"`
	CertDir     string `yaml:"cert_dir"`
	PersistData bool   `yaml:"persist_data"`
}

// EmailConfig carries the addresses used for certificates and admin mail.
type EmailConfig struct {
	SMTPURL    string `yaml:"smtp_url"`
	CertEmail  string `yaml:"cert_email"`
	AdminEmail string `yaml:"admin_email"`
}

// Default returns a config with localhost defaults.
func Default() Config {
	return Config{
		Network: NetworkConfig{
			Domain:      "localhost",
			BindAddress: "0.0.0.0",
			UseTLS:      true,
			Ports:       Ports{HTTP: 80, HTTPS: 443, PDS: 2583, PLC: 2582},
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			CertDir:     "./certs",
			PersistData: true,
		},
		Email: EmailConfig{
			CertEmail:  "admin@localhost",
			AdminEmail: "admin@localhost",
		},
	}
}

// Load reads and parses a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config, creating parent directories as needed.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("serialize config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configs that cannot produce a working deployment.
func (c Config) Validate() error {
	if c.Network.Domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	if c.Network.BindAddress == "" {
		return fmt.Errorf("bind address cannot be empty")
	}

	ports := []uint16{c.Network.Ports.HTTP, c.Network.Ports.HTTPS, c.Network.Ports.PDS, c.Network.Ports.PLC}
	seen := make(map[uint16]bool, len(ports))
	for _, p := range ports {
		if seen[p] {
			return fmt.Errorf("port numbers must be unique")
		}
		seen[p] = true
	}
	return nil
}

// EnvVars returns the environment injected into the process group start.
func (c Config) EnvVars() map[string]string {
	return map[string]string{
		"DOMAIN":       c.Network.Domain,
		"BIND_ADDRESS": c.Network.BindAddress,
		"USE_TLS":      strconv.FormatBool(c.Network.UseTLS),
	}
}
