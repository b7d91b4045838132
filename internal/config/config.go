// Package config handles XDG configuration/data directories and settings.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	// AppName is the application directory name.
	AppName = "ltask"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"

	// SettingsFile is the optional TOML settings filename.
	SettingsFile = "config.toml"

	// DBFile is the task database filename.
	DBFile = "tasks.db"

	// SyncLogFile is the rotating sync diagnostics log filename.
	SyncLogFile = "sync.log"
)

// Settings holds tunables read from config.toml. All fields are optional;
// zero values fall back to defaults chosen by the consumer.
type Settings struct {
	// TieBreak decides the winner when local and remote carry the same
	// modification timestamp: "remote" (default) or "local".
	TieBreak string `toml:"tie_break"`

	// DeleteWins makes a local delete beat a concurrent remote update.
	// Defaults to true.
	DeleteWins *bool `toml:"delete_wins"`

	// MaxRetries caps retry attempts for transient remote failures.
	MaxRetries int `toml:"max_retries"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// DataDir is the data directory path (task database, sync log).
	DataDir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are the values read from config.toml, if present.
	Settings Settings
}

// New creates a new Config with the default or specified directories and
// loads config.toml when it exists. If configDir is empty, uses
// XDG_CONFIG_HOME/ltask or $HOME/.config/ltask; the data directory follows
// XDG_DATA_HOME the same way. A non-empty configDir is used for both, which
// keeps tests and portable installs self-contained.
func New(configDir string) (*Config, error) {
	dir := configDir
	dataDir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
		dataDir = DefaultDataDir()
	}
	c := &Config{Dir: dir, DataDir: dataDir}
	if err := c.loadSettings(); err != nil {
		return nil, err
	}
	return c, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultDataDir returns the default data directory.
// Uses XDG_DATA_HOME if set, otherwise $HOME/.local/share.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".local", "share", AppName)
}

func (c *Config) loadSettings() error {
	path := filepath.Join(c.Dir, SettingsFile)
	if _, err := os.Stat(path); err != nil {
		return nil // no settings file is fine
	}
	_, err := toml.DecodeFile(path, &c.Settings)
	return err
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// DBPath returns the path to the task database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFile)
}

// SyncLogPath returns the path to the sync diagnostics log.
func (c *Config) SyncLogPath() string {
	return filepath.Join(c.DataDir, SyncLogFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
