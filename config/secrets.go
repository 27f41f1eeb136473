package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Secrets are the generated credentials injected into the PDS at start.
type Secrets struct {
	PDSJWTSecret      string `yaml:"pds_jwt_secret"`
	PDSAdminPassword  string `yaml:"pds_admin_password"`
	PDSPLCRotationKey string `yaml:"pds_plc_rotation_key"`
}

const (
	alphanumeric   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
)

// GenerateSecrets produces a fresh set of credentials.
func GenerateSecrets() Secrets {
	return Secrets{
		PDSJWTSecret:      randomString(alphanumeric, 32),
		PDSAdminPassword:  randomString(alphanumeric, 16),
		PDSPLCRotationKey: randomString(base32Alphabet, 52),
	}
}

// LoadSecrets reads and parses a secrets file.
func LoadSecrets(path string) (Secrets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Secrets{}, fmt.Errorf("read secrets: %w", err)
	}
	var s Secrets
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Secrets{}, fmt.Errorf("parse secrets: %w", err)
	}
	return s, nil
}

// Save writes the secrets file with owner-only permissions.
func (s Secrets) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("serialize secrets: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create secrets dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	return nil
}

// EnvVars returns the secret environment variables the PDS expects.
func (s Secrets) EnvVars() map[string]string {
	return map[string]string{
		"PDS_JWT_SECRET":            s.PDSJWTSecret,
		"PDS_ADMIN_PASSWORD":        s.PDSAdminPassword,
		"PDS_PLC_ROTATION_KEY_K256": s.PDSPLCRotationKey,
	}
}

// randomString draws n characters from the alphabet using crypto/rand.
func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}
