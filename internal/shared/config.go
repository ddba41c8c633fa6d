package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration.
//
// Values are layered: embedded defaults, then an optional TOML file, then an
// optional .env file, then IDMIGRATE_* environment variables. The environment
// always wins, and is the only source for the API token.
type Config struct {
	Remote    RemoteConfig    `toml:"remote"`
	Migration MigrationConfig `toml:"migration"`
	Database  DatabaseConfig  `toml:"database"`
	Logs      LogConfig       `toml:"logs"`
}

// RemoteConfig contains identity-service connection settings.
type RemoteConfig struct {
	BaseURL string `toml:"base_url"`
	// Token is environment-only; it is never read from or written to disk.
	Token        string `toml:"-"`
	AllowSandbox bool   `toml:"allow_sandbox"`
}

// MigrationConfig contains migration pacing settings.
type MigrationConfig struct {
	DelayMS    int `toml:"delay_ms"`
	CooldownMS int `toml:"cooldown_ms"`
	Offset     int `toml:"offset"`
}

// DatabaseConfig contains run-history database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains failure-log output settings.
type LogConfig struct {
	Dir string `toml:"dir"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	} else if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv applies .env and environment overrides to the config.
//
// A .env file in the working directory is loaded first (missing files are
// fine), then each IDMIGRATE_* variable replaces its config counterpart.
// Malformed numeric or boolean values are reported rather than ignored.
func (c *Config) LoadEnv() error {
	_ = godotenv.Load()

	if v := os.Getenv("IDMIGRATE_API_TOKEN"); v != "" {
		c.Remote.Token = v
	}
	if v := os.Getenv("IDMIGRATE_BASE_URL"); v != "" {
		c.Remote.BaseURL = v
	}
	if v := os.Getenv("IDMIGRATE_ALLOW_SANDBOX"); v != "" {
		allow, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: IDMIGRATE_ALLOW_SANDBOX=%q", ErrInvalidConfig, v)
		}
		c.Remote.AllowSandbox = allow
	}

	for _, ev := range []struct {
		name   string
		target *int
	}{
		{"IDMIGRATE_DELAY_MS", &c.Migration.DelayMS},
		{"IDMIGRATE_COOLDOWN_MS", &c.Migration.CooldownMS},
		{"IDMIGRATE_OFFSET", &c.Migration.Offset},
	} {
		v := os.Getenv(ev.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, ev.name, v)
		}
		*ev.target = n
	}

	if v := os.Getenv("IDMIGRATE_LOG_DIR"); v != "" {
		c.Logs.Dir = v
	}
	if v := os.Getenv("IDMIGRATE_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	return nil
}

// Validate checks the startup preconditions for a migration run.
//
// These are checked before any record is touched: a missing token or a
// sandbox-looking target without the allow flag aborts the process.
func (c *Config) Validate() error {
	if c.Remote.Token == "" {
		return fmt.Errorf("%w: set IDMIGRATE_API_TOKEN", ErrMissingToken)
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("%w: remote base URL is empty", ErrInvalidConfig)
	}
	if c.SandboxTarget() && !c.Remote.AllowSandbox {
		return fmt.Errorf("%w: %s (set IDMIGRATE_ALLOW_SANDBOX=true to import into a non-production instance)",
			ErrSandboxTarget, c.Remote.BaseURL)
	}
	if c.Migration.DelayMS < 0 || c.Migration.CooldownMS < 0 {
		return fmt.Errorf("%w: delay and cooldown must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// SandboxTarget reports whether the configured credential or base URL looks
// like a non-production instance.
func (c *Config) SandboxTarget() bool {
	return strings.Contains(strings.ToLower(c.Remote.BaseURL), "sandbox") ||
		strings.HasPrefix(c.Remote.Token, "test_")
}

// Delay returns the inter-record throttle delay.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.Migration.DelayMS) * time.Millisecond
}

// Cooldown returns the rate-limit cooldown duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Migration.CooldownMS) * time.Millisecond
}
