package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the client config file
type TOMLConfig struct {
	Server     ServerSection     `toml:"server"`
	Connection ConnectionSection `toml:"connection"`
	Limits     LimitsSection     `toml:"limits"`
	Client     ClientSection     `toml:"client"`
}

type ServerSection struct {
	URL string `toml:"url"`
}

type ConnectionSection struct {
	TimeoutMs      int `toml:"timeout_ms"`
	MaxAttempts    int `toml:"max_attempts"`
	WriteTimeoutMs int `toml:"write_timeout_ms"`
}

type LimitsSection struct {
	ActionsPerSecond float64 `toml:"actions_per_second"`
	ActionsBurst     int     `toml:"actions_burst"`
}

type ClientSection struct {
	StatePath            string `toml:"state_path"`
	LogPath              string `toml:"log_path"`
	Debug                bool   `toml:"debug"`
	DesktopNotifications bool   `toml:"desktop_notifications"`
	MetricsAddr          string `toml:"metrics_addr"`
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			URL: "http://localhost:8080",
		},
		Connection: ConnectionSection{
			TimeoutMs:      5000,
			MaxAttempts:    10,
			WriteTimeoutMs: 10000,
		},
		Limits: LimitsSection{
			ActionsPerSecond: 2,
			ActionsBurst:     5,
		},
		Client: ClientSection{
			StatePath:            "~/.votefeed/state.db",
			LogPath:              "~/.votefeed/debug.log",
			Debug:                false,
			DesktopNotifications: false,
			MetricsAddr:          "", // Disabled
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found,
// and applies environment variable overrides
func LoadConfig(path string) (TOMLConfig, error) {
	path, err := ExpandPath(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		// If we can't write, just run with defaults
		_ = writeDefaultConfig(path)
		return applyEnvOverrides(config), nil
	}

	// Start from defaults so keys missing in the file keep their default
	config := DefaultTOMLConfig()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return applyEnvOverrides(config), nil
}

// ExpandPath expands a leading ~/ to the user's home directory
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// applyEnvOverrides applies environment variable overrides to the config
// Environment variables follow the pattern: VOTEFEED_SECTION_KEY
// Example: VOTEFEED_SERVER_URL=https://feed.example.com
func applyEnvOverrides(config TOMLConfig) TOMLConfig {
	// Server section
	if val := os.Getenv("VOTEFEED_SERVER_URL"); val != "" {
		config.Server.URL = val
	}

	// Connection section
	if val := os.Getenv("VOTEFEED_CONNECTION_TIMEOUT_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			config.Connection.TimeoutMs = ms
		}
	}
	if val := os.Getenv("VOTEFEED_CONNECTION_MAX_ATTEMPTS"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			config.Connection.MaxAttempts = n
		}
	}
	if val := os.Getenv("VOTEFEED_CONNECTION_WRITE_TIMEOUT_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			config.Connection.WriteTimeoutMs = ms
		}
	}

	// Limits section
	if val := os.Getenv("VOTEFEED_LIMITS_ACTIONS_PER_SECOND"); val != "" {
		if rate, err := strconv.ParseFloat(val, 64); err == nil {
			config.Limits.ActionsPerSecond = rate
		}
	}
	if val := os.Getenv("VOTEFEED_LIMITS_ACTIONS_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil {
			config.Limits.ActionsBurst = burst
		}
	}

	// Client section
	if val := os.Getenv("VOTEFEED_CLIENT_STATE_PATH"); val != "" {
		config.Client.StatePath = val
	}
	if val := os.Getenv("VOTEFEED_CLIENT_LOG_PATH"); val != "" {
		config.Client.LogPath = val
	}
	if val := os.Getenv("VOTEFEED_CLIENT_DEBUG"); val != "" {
		if debug, err := strconv.ParseBool(val); err == nil {
			config.Client.Debug = debug
		}
	}
	if val := os.Getenv("VOTEFEED_CLIENT_DESKTOP_NOTIFICATIONS"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			config.Client.DesktopNotifications = enabled
		}
	}
	if val := os.Getenv("VOTEFEED_CLIENT_METRICS_ADDR"); val != "" {
		config.Client.MetricsAddr = val
	}

	return config
}

// writeDefaultConfig writes the default config to a file with all options documented
func writeDefaultConfig(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	content := `# VoteFeed Client Configuration
# This file was auto-generated with default values
#
# Environment variables can override these settings:
# VOTEFEED_SECTION_KEY (e.g., VOTEFEED_SERVER_URL=https://feed.example.com)
# A .env file in the working directory is loaded first.

[server]
# Base URL of the server. Login is POSTed to {url}/login and the live
# connection is opened at {url}/ws/ (http -> ws, https -> wss)
url = "http://localhost:8080"

[connection]
# Wait between reconnection attempts in milliseconds
timeout_ms = 5000

# Reconnection attempts before giving up (a manual retry is then offered)
max_attempts = 10

# Timeout for writing one frame in milliseconds
write_timeout_ms = 10000

[limits]
# Client-side throttle for creating posts and voting
actions_per_second = 2.0
actions_burst = 5

[client]
# Path to SQLite state database (session token, last username)
state_path = "~/.votefeed/state.db"

# Debug log file (the terminal UI owns stdout)
log_path = "~/.votefeed/debug.log"
debug = false

# Show desktop notifications in addition to in-app toasts
desktop_notifications = false

# Serve Prometheus metrics on this address (empty = disabled)
# Uncomment to enable:
# metrics_addr = "127.0.0.1:9091"
`

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ToEngineConfig converts TOMLConfig to EngineConfig
func (c *TOMLConfig) ToEngineConfig() EngineConfig {
	cfg := EngineConfig{
		ServerURL:        strings.TrimSpace(c.Server.URL),
		Timeout:          5 * time.Second,
		MaxAttempts:      10,
		WriteTimeout:     10 * time.Second,
		ActionsPerSecond: c.Limits.ActionsPerSecond,
		ActionsBurst:     c.Limits.ActionsBurst,
	}

	if c.Connection.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(c.Connection.TimeoutMs) * time.Millisecond
	}
	if c.Connection.MaxAttempts > 0 {
		cfg.MaxAttempts = c.Connection.MaxAttempts
	}
	if c.Connection.WriteTimeoutMs > 0 {
		cfg.WriteTimeout = time.Duration(c.Connection.WriteTimeoutMs) * time.Millisecond
	}

	return cfg
}
