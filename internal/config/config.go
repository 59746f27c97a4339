// Package config handles application configuration and paths.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the launcher configuration
type Config struct {
	// DataDir is where the account store and config live
	DataDir string `json:"dataDir"`

	// Auth
	MSAClientID string `json:"msaClientID"`

	// CredentialKey feeds the account cipher. Never persisted; sourced from
	// the environment with a fallback that keeps older store files readable.
	CredentialKey string `json:"-"`
}

const (
	// DefaultMSAClientID is the public Minecraft launcher client id.
	DefaultMSAClientID = "000000004C12AE6F"

	credentialKeyEnv = "VOXEL_CREDENTIAL_KEY"

	// defaultCredentialKey matches the passphrase earlier launcher builds
	// encrypted their stores with. TODO: migrate the key into OS keychain
	// storage and re-encrypt existing stores on first load.
	defaultCredentialKey = "voxel-launcher-secure-key-2024"
)

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		DataDir:       getDefaultDataDir(),
		MSAClientID:   DefaultMSAClientID,
		CredentialKey: credentialKey(),
	}
}

// Load reads config from disk
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := filepath.Join(cfg.DataDir, "config.json")
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Fallback to default ID if config file had empty string or missing field
	if cfg.MSAClientID == "" {
		cfg.MSAClientID = DefaultMSAClientID
	}
	cfg.CredentialKey = credentialKey()

	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	configPath := filepath.Join(c.DataDir, "config.json")
	return os.WriteFile(configPath, data, 0644)
}

// AccountsPath is the fixed location of the encrypted account store.
func (c *Config) AccountsPath() string {
	return filepath.Join(c.DataDir, "accounts.json")
}

func credentialKey() string {
	if k := os.Getenv(credentialKeyEnv); k != "" {
		return k
	}
	return defaultCredentialKey
}

func getDefaultDataDir() string {
	// Check for portable mode first
	exe, _ := os.Executable()
	portablePath := filepath.Join(filepath.Dir(exe), "data")
	if _, err := os.Stat(portablePath); err == nil {
		return portablePath
	}

	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".minecraft-launcher")
}
