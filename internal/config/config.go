package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// DefaultUser is used by add/connect when no --user is given.
	DefaultUser string `json:"default_user,omitempty"`

	// DefaultPort is used by add/connect when no --port is given.
	DefaultPort int `json:"default_port,omitempty"`

	// DefaultBastion is applied to new connections unless --no-bastion is set.
	DefaultBastion string `json:"default_bastion,omitempty"`

	// DefaultBastionUser is the bastion login applied together with DefaultBastion.
	DefaultBastionUser string `json:"default_bastion_user,omitempty"`

	// UseKerberosByDefault enables Kerberos for new connections that go through a bastion.
	// Direct connections default to Kerberos off regardless of this setting.
	UseKerberosByDefault bool `json:"use_kerberos_by_default,omitempty"`

	// SearchLimit caps how many candidates fuzzy discovery returns.
	SearchLimit int `json:"search_limit,omitempty"`

	// RecentLimit caps the "recent connections" fallback shown when nothing matches.
	RecentLimit int `json:"recent_limit,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// SSHBinary is the ssh client executable.
	SSHBinary string `json:"ssh_binary,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.bssh/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "admin"
	}
	return &Config{
		DefaultUser: user,
		DefaultPort: 22,
		SearchLimit: 10,
		RecentLimit: 5,
		LogLevel:    "info",
		SSHBinary:   "ssh",
	}
}

// BaseDir returns the bssh data directory: $BSSH_HOME, else ~/.bssh.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("BSSH_HOME")); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".bssh"), nil
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.bssh.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Save writes cfg to baseDir/config.json.
func Save(baseDir string, cfg *Config) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(baseDir, "config.json"), append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.DefaultUser = firstString(overlay.DefaultUser, base.DefaultUser)
	result.DefaultBastion = firstString(overlay.DefaultBastion, base.DefaultBastion)
	result.DefaultBastionUser = firstString(overlay.DefaultBastionUser, base.DefaultBastionUser)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)
	result.SSHBinary = firstString(overlay.SSHBinary, base.SSHBinary)

	result.DefaultPort = firstInt(overlay.DefaultPort, base.DefaultPort)
	result.SearchLimit = firstInt(overlay.SearchLimit, base.SearchLimit)
	result.RecentLimit = firstInt(overlay.RecentLimit, base.RecentLimit)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.UseKerberosByDefault = base.UseKerberosByDefault || overlay.UseKerberosByDefault
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// Set updates a scalar setting by its JSON key.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "default_user":
		c.DefaultUser = value
	case "default_bastion":
		c.DefaultBastion = value
	case "default_bastion_user":
		c.DefaultBastionUser = value
	case "ssh_binary":
		if value == "" {
			return fmt.Errorf("ssh_binary must not be empty")
		}
		c.SSHBinary = value
	case "log_level":
		switch value {
		case "debug", "info", "warn", "error":
			c.LogLevel = value
		default:
			return fmt.Errorf("log_level must be one of: debug, info, warn, error")
		}
	case "default_port":
		port, err := strconv.Atoi(value)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("default_port must be between 1 and 65535")
		}
		c.DefaultPort = port
	case "search_limit", "recent_limit":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		if key == "search_limit" {
			c.SearchLimit = n
		} else {
			c.RecentLimit = n
		}
	case "use_kerberos_by_default", "allow_unsafe_paths":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false", key)
		}
		if key == "use_kerberos_by_default" {
			c.UseKerberosByDefault = b
		} else {
			c.AllowUnsafePaths = b
		}
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func firstString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
