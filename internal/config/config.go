package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Secrets   SecretsConfig   `yaml:"secrets"`
	Coach     CoachConfig     `yaml:"coach"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// SecretsConfig locates the encrypted key/value store and its key file.
type SecretsConfig struct {
	DBPath  string `yaml:"db_path"`
	KeyPath string `yaml:"key_path"`
}

// CoachConfig holds coaching defaults.
type CoachConfig struct {
	// DefaultAthlete is used when a request names no athlete.
	DefaultAthlete string `yaml:"default_athlete"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Default locations of the secrets store, matching the CLI defaults.
const (
	DefaultSecretsDB = "/var/lib/ultra-coach/coach.sqlite"
	DefaultAthlete   = "athlete"
)

// APIKeySecret names the API key in the encrypted config store. It matches
// the env override so "eval $(ultracoach-config env)" also sets it.
const APIKeySecret = "ULTRACOACH_AUTH_API_KEY"

// DefaultKeyPath returns ~/.ultra-coach/secret.key.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ultra-coach", "secret.key")
	}
	return filepath.Join(home, ".ultra-coach", "secret.key")
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix ULTRACOACH_ and underscore-separated paths:
//
//	ULTRACOACH_SERVER_HOST, ULTRACOACH_SERVER_PORT,
//	ULTRACOACH_DB_HOST, ULTRACOACH_DB_PORT, ULTRACOACH_DB_NAME,
//	ULTRACOACH_DB_USER, ULTRACOACH_DB_PASSWORD, ULTRACOACH_DB_SSLMODE,
//	ULTRACOACH_AUTH_API_KEY, ULTRACOACH_TAILSCALE_ENABLED,
//	ULTRACOACH_SECRETS_DB, ULTRACOACH_SECRETS_KEY_PATH,
//	ULTRACOACH_ATHLETE
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ULTRACOACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("ULTRACOACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ULTRACOACH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("ULTRACOACH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("ULTRACOACH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("ULTRACOACH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("ULTRACOACH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("ULTRACOACH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("ULTRACOACH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("ULTRACOACH_TAILSCALE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = b
		}
	}
	if v := os.Getenv("ULTRACOACH_SECRETS_DB"); v != "" {
		cfg.Secrets.DBPath = v
	}
	if v := os.Getenv("ULTRACOACH_SECRETS_KEY_PATH"); v != "" {
		cfg.Secrets.KeyPath = v
	}
	if v := os.Getenv("ULTRACOACH_ATHLETE"); v != "" {
		cfg.Coach.DefaultAthlete = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "ultracoach"
	}
	if cfg.Secrets.DBPath == "" {
		cfg.Secrets.DBPath = DefaultSecretsDB
	}
	if cfg.Secrets.KeyPath == "" {
		cfg.Secrets.KeyPath = DefaultKeyPath()
	}
	if cfg.Coach.DefaultAthlete == "" {
		cfg.Coach.DefaultAthlete = DefaultAthlete
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	return nil
}
