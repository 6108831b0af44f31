// Package config handles XDG configuration directory, file paths and settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	// AppName is the application directory name.
	AppName = "tasksync"

	// ConfigFile is the optional settings filename.
	ConfigFile = "config.toml"

	// StoreFile is the file-backed key-value store filename.
	StoreFile = "store.json"

	// DBFile is the SQLite key-value store filename.
	DBFile = "tasksync.db"

	// LogFile is the log filename used when debug output is off.
	LogFile = "tasksync.log"

	// DefaultAPIURL is the remote authority used when none is configured.
	DefaultAPIURL = "http://localhost:5005"

	// DefaultAPITimeout bounds each remote call.
	DefaultAPITimeout = 10 * time.Second
)

// Store backends.
const (
	StoreFileBackend   = "file"
	StoreSQLiteBackend = "sqlite"
)

// Environment overrides.
const (
	EnvAPIURL = "TASKSYNC_API_URL"
	EnvStore  = "TASKSYNC_STORE"

	// EnvPassword supplies the login password when --password is absent.
	EnvPassword = "TASKSYNC_PASSWORD"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging to stderr.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// APIURL is the base URL of the remote authority, ending in /api.
	APIURL string

	// APITimeout bounds each remote call.
	APITimeout time.Duration

	// Store selects the token store backend ("file" or "sqlite").
	Store string

	// LogLevel is the minimum level written to the log file.
	LogLevel string
}

// fileSettings mirrors config.toml.
type fileSettings struct {
	APIURL     string `toml:"api_url"`
	APITimeout string `toml:"api_timeout"`
	Store      string `toml:"store"`
	LogLevel   string `toml:"log_level"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/tasksync or $HOME/.config/tasksync.
// Settings come from config.toml when present, then from the environment.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:        dir,
		APIURL:     DefaultAPIURL,
		APITimeout: DefaultAPITimeout,
		Store:      StoreFileBackend,
		LogLevel:   "info",
	}

	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStore)); v != "" {
		cfg.Store = v
	}

	cfg.APIURL = NormalizeAPIURL(cfg.APIURL)
	switch cfg.Store {
	case StoreFileBackend, StoreSQLiteBackend:
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store)
	}
	return cfg, nil
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.SettingsPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	var s fileSettings
	if err := toml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	if s.APIURL != "" {
		c.APIURL = s.APIURL
	}
	if s.APITimeout != "" {
		d, err := time.ParseDuration(s.APITimeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid api_timeout: %q", s.APITimeout)
		}
		c.APITimeout = d
	}
	if s.Store != "" {
		c.Store = s.Store
	}
	if s.LogLevel != "" {
		c.LogLevel = s.LogLevel
	}
	return nil
}

// NormalizeAPIURL trims trailing slashes and appends /api when missing.
func NormalizeAPIURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	if u == "" {
		u = DefaultAPIURL
	}
	if strings.HasSuffix(u, "/api") {
		return u
	}
	return u + "/api"
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

// SettingsPath returns the path to config.toml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// StorePath returns the path to the file-backed key-value store.
func (c *Config) StorePath() string {
	return filepath.Join(c.Dir, StoreFile)
}

// DBPath returns the path to the SQLite key-value store.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir, DBFile)
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, LogFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}
