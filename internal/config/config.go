// Package config handles Mnemo configuration: where the unified log
// lives, where the legacy logs are looked for, and tunables for the
// lock and scheduler.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the persisted Mnemo configuration.
type Config struct {
	// DataDir is where the log and lock files live.
	DataDir string `json:"data_dir"`

	// LogFile is the unified log filename inside DataDir.
	LogFile string `json:"log_file"`

	// LegacyDir is scanned for pre-unification logs during migration.
	// Defaults to DataDir.
	LegacyDir string `json:"legacy_dir,omitempty"`

	// LockTimeout bounds how long an append waits for the file lock.
	LockTimeout Duration `json:"lock_timeout"`

	// SchedulerInterval is the reminder poll interval.
	SchedulerInterval Duration `json:"scheduler_interval"`
}

// Duration wraps time.Duration with JSON string encoding ("5s", "1m").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the default configuration rooted at ~/.mnemo.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".mnemo")
	return &Config{
		DataDir:           dataDir,
		LogFile:           "brain.jsonl",
		LockTimeout:       Duration(5 * time.Second),
		SchedulerInterval: Duration(30 * time.Second),
	}
}

// LogPath returns the full path of the unified log.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, c.LogFile)
}

// LegacyPath returns the directory scanned for legacy logs.
func (c *Config) LegacyPath() string {
	if c.LegacyDir != "" {
		return c.LegacyDir
	}
	return c.DataDir
}

// Path returns the config file location.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mnemo", "config.json")
}

// Load reads the config file, falling back to defaults when it does
// not exist. Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.LogFile == "" {
		cfg.LogFile = "brain.jsonl"
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = Duration(5 * time.Second)
	}
	if cfg.SchedulerInterval <= 0 {
		cfg.SchedulerInterval = Duration(30 * time.Second)
	}
	return cfg, nil
}

// Save writes the config file, creating its directory with owner-only
// permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureDataDir creates the data directory if needed.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
