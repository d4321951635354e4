// Package syncconfig loads and stores the client's sync settings and
// credentials under ~/.config/offsync.
package syncconfig

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL           string `json:"url"`
	Enabled       bool   `json:"enabled"`
	QueuePath     string `json:"queue_path,omitempty"`     // default <config dir>/queue.db
	ProbeInterval string `json:"probe_interval,omitempty"` // duration string, default "15s"
}

// Config is the global offsync config stored at
// ~/.config/offsync/config.json.
type Config struct {
	Sync      SyncConfig `json:"sync"`
	LogLevel  string     `json:"log_level,omitempty"`  // debug|info|warn|error
	LogFormat string     `json:"log_format,omitempty"` // text|json
}

// AuthCredentials stores authentication state at
// ~/.config/offsync/auth.json.
type AuthCredentials struct {
	APIKey    string `json:"api_key"`
	UserID    string `json:"user_id"`
	ServerURL string `json:"server_url"`
	DeviceID  string `json:"device_id"`
	ExpiresAt string `json:"expires_at"`
}

const defaultServerURL = "http://localhost:8080"

// DefaultProbeInterval matches the connectivity probe's default.
const DefaultProbeInterval = 15 * time.Second

// ConfigDir returns ~/.config/offsync, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "offsync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config, returning defaults when absent.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return loadConfigFrom(filepath.Join(dir, "config.json"))
}

func loadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config with an atomic temp+rename.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return atomicWriteJSON(filepath.Join(dir, "config.json"), cfg)
}

// LoadAuth reads stored credentials, nil when not logged in.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth persists credentials with restrictive permissions.
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "auth.json")
	if err := atomicWriteJSON(path, creds); err != nil {
		return err
	}
	return os.Chmod(path, 0600)
}

// ServerURL resolves the effective server URL.
// Priority: OFFSYNC_URL env > config.json sync.url > default.
func (c *Config) ServerURL() string {
	if v := os.Getenv("OFFSYNC_URL"); v != "" {
		return v
	}
	if c.Sync.URL != "" {
		return c.Sync.URL
	}
	return defaultServerURL
}

// SyncEnabled resolves whether sync is on.
// Priority: OFFSYNC_ENABLED env > config.json sync.enabled.
func (c *Config) SyncEnabled() bool {
	if v := parseBoolEnv("OFFSYNC_ENABLED"); v != nil {
		return *v
	}
	return c.Sync.Enabled
}

// QueuePath resolves where the durable queue lives.
func (c *Config) QueuePath() (string, error) {
	if c.Sync.QueuePath != "" {
		return c.Sync.QueuePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "queue.db"), nil
}

// ProbeInterval resolves the connectivity probe interval.
func (c *Config) ProbeInterval() time.Duration {
	if c.Sync.ProbeInterval == "" {
		return DefaultProbeInterval
	}
	d, err := time.ParseDuration(c.Sync.ProbeInterval)
	if err != nil || d <= 0 {
		return DefaultProbeInterval
	}
	return d
}

// GetDeviceID returns the device ID from auth.json, generating one if
// needed.
func GetDeviceID() (string, error) {
	creds, err := LoadAuth()
	if err != nil {
		return "", err
	}
	if creds != nil && creds.DeviceID != "" {
		return creds.DeviceID, nil
	}
	return GenerateDeviceID()
}

// GenerateDeviceID creates a new random device ID (16 bytes hex).
func GenerateDeviceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// atomicWriteJSON marshals v and writes it with temp file + rename.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := strings.ToLower(os.Getenv(envKey))
	if v == "" {
		return nil
	}
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
