// ABOUTME: Configuration loading and parsing for the Glingo content store
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete content-store configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Remote   RemoteConfig   `yaml:"remote"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds the SQLite database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`

	// AutoReset controls the self-healing delete-and-recreate recovery
	// when the schema cannot be brought to the current version.
	AutoReset *bool `yaml:"auto_reset"`
}

// CacheConfig holds query-cache tuning
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`

	TTL           time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	TTLRaw           string `yaml:"ttl"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// RemoteConfig holds the remote content service mirror configuration
type RemoteConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BaseURL   string `yaml:"base_url"`
	JWTSecret string `yaml:"jwt_secret"`

	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1024
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.SweepInterval <= 0 {
		c.Cache.SweepInterval = time.Minute
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 10 * time.Second
	}
}

// AutoResetEnabled reports whether self-healing recovery is on
// (the default when unset).
func (d DatabaseConfig) AutoResetEnabled() bool {
	return d.AutoReset == nil || *d.AutoReset
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Remote.Enabled {
		if c.Remote.BaseURL == "" {
			return fmt.Errorf("remote.base_url is required when remote mirroring is enabled")
		}
		if c.Remote.JWTSecret == "" {
			return fmt.Errorf("remote.jwt_secret is required when remote mirroring is enabled")
		}
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Cache.TTLRaw != "" {
		cfg.Cache.TTL, err = time.ParseDuration(cfg.Cache.TTLRaw)
		if err != nil {
			return fmt.Errorf("parsing cache.ttl %q: %w", cfg.Cache.TTLRaw, err)
		}
	}

	if cfg.Cache.SweepIntervalRaw != "" {
		cfg.Cache.SweepInterval, err = time.ParseDuration(cfg.Cache.SweepIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing cache.sweep_interval %q: %w", cfg.Cache.SweepIntervalRaw, err)
		}
	}

	if cfg.Remote.TimeoutRaw != "" {
		cfg.Remote.Timeout, err = time.ParseDuration(cfg.Remote.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing remote.timeout %q: %w", cfg.Remote.TimeoutRaw, err)
		}
	}

	return nil
}
