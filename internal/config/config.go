// Package config provides configuration loading and validation from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Config holds all agent configuration.
type Config struct {
	LogLevel          string // debug, info, warn, error
	ListenAddr        string // Control API listen address (e.g., ":8080")
	MetricsListenAddr string // Metrics listener address (e.g., "localhost:9090")
	DatabasePath      string // SQLite database path
	ActivityLogPath   string // Append-only reconciliation log path
	CloudflareAPIURL  string // Optional: base URL for the Cloudflare API (empty = use default)
	IPv4EchoURL       string // Optional: IPv4 echo service URL (empty = use default)
	IPv6EchoURL       string // Optional: IPv6 echo service URL (empty = use default)
	EncryptionKey     []byte // Required: 32-byte key for credential encryption at rest
	AdminToken        string // Optional: bootstrap token for the control API
}

// Load parses configuration from environment variables. Optional fields have
// deployment-friendly defaults; the encryption key is the only hard
// requirement and may come from ENCRYPTION_KEY (hex) or ENCRYPTION_KEY_FILE.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          getenvDefault("LOG_LEVEL", "info"),
		ListenAddr:        getenvDefault("LISTEN_ADDR", ":8080"),
		MetricsListenAddr: getenvDefault("METRICS_LISTEN_ADDR", "localhost:9090"),
		DatabasePath:      getenvDefault("DATABASE_PATH", "/data/ddns.db"),
		ActivityLogPath:   getenvDefault("ACTIVITY_LOG_PATH", "/data/activity.log"),
		CloudflareAPIURL:  os.Getenv("CLOUDFLARE_API_URL"),
		IPv4EchoURL:       os.Getenv("IPV4_ECHO_URL"),
		IPv6EchoURL:       os.Getenv("IPV6_ECHO_URL"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
	}

	key, err := loadEncryptionKey()
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("encryption key must be 32 bytes, got %d", len(c.EncryptionKey))
	}
	return nil
}

// loadEncryptionKey reads the credential encryption key. ENCRYPTION_KEY takes
// a hex-encoded 32-byte key directly; ENCRYPTION_KEY_FILE points at a file
// containing the same. Exactly one source must be set.
func loadEncryptionKey() ([]byte, error) {
	raw := os.Getenv("ENCRYPTION_KEY")
	keyFile := os.Getenv("ENCRYPTION_KEY_FILE")

	switch {
	case raw != "" && keyFile != "":
		return nil, fmt.Errorf("ENCRYPTION_KEY and ENCRYPTION_KEY_FILE are mutually exclusive")
	case raw == "" && keyFile == "":
		return nil, fmt.Errorf("ENCRYPTION_KEY or ENCRYPTION_KEY_FILE environment variable is required")
	case keyFile != "":
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("reading encryption key file: %w", err)
		}
		raw = strings.TrimSpace(string(data))
	}

	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getenvDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
