package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const envPrefix = "NGOBOARD_"

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Payment   PaymentConfig   `yaml:"payment"`
	Reporting ReportingConfig `yaml:"reporting"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	// Mode is "stdio" or "http".
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Path enables a rotated log file in addition to stderr.
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type AuthConfig struct {
	Enabled bool `yaml:"enabled"`
	// DefaultOrg and DefaultRole identify the caller when auth is off.
	DefaultOrg  string `yaml:"default_org"`
	DefaultRole string `yaml:"default_role"`
}

type PaymentConfig struct {
	Currency  string `yaml:"currency"`
	MaxAmount string `yaml:"max_amount"`
}

// Ceiling parses MaxAmount. An empty value means no ceiling.
func (p PaymentConfig) Ceiling() (decimal.Decimal, error) {
	if strings.TrimSpace(p.MaxAmount) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(p.MaxAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid payment.max_amount %q: %w", p.MaxAmount, err)
	}
	return d, nil
}

type ReportingConfig struct {
	// Policy is "independent" or "after_approval".
	Policy            string `yaml:"policy"`
	DerivedFieldsPath string `yaml:"derived_fields_path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "ngoboard.db",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Auth: AuthConfig{
			Enabled:     true,
			DefaultRole: "admin",
		},
		Payment: PaymentConfig{
			Currency:  "USD",
			MaxAmount: "1000000",
		},
		Reporting: ReportingConfig{
			Policy: "independent",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport.mode %q", c.Transport.Mode)
	}
	switch c.Reporting.Policy {
	case "independent", "after_approval":
	default:
		return fmt.Errorf("invalid reporting.policy %q", c.Reporting.Policy)
	}
	switch c.Auth.DefaultRole {
	case "admin", "organization":
	default:
		return fmt.Errorf("invalid auth.default_role %q", c.Auth.DefaultRole)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if _, err := c.Payment.Ceiling(); err != nil {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"SERVER_HOST":                   &cfg.Server.Host,
		"TRANSPORT_MODE":                &cfg.Transport.Mode,
		"DB_PATH":                       &cfg.DB.Path,
		"LOG_LEVEL":                     &cfg.Log.Level,
		"LOG_PATH":                      &cfg.Log.Path,
		"AUTH_DEFAULT_ORG":              &cfg.Auth.DefaultOrg,
		"AUTH_DEFAULT_ROLE":             &cfg.Auth.DefaultRole,
		"PAYMENT_CURRENCY":              &cfg.Payment.Currency,
		"PAYMENT_MAX_AMOUNT":            &cfg.Payment.MaxAmount,
		"REPORTING_POLICY":              &cfg.Reporting.Policy,
		"REPORTING_DERIVED_FIELDS_PATH": &cfg.Reporting.DerivedFieldsPath,
	}
	for key, dst := range strs {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":     &cfg.Server.Port,
		"LOG_MAX_SIZE_MB": &cfg.Log.MaxSizeMB,
		"LOG_MAX_BACKUPS": &cfg.Log.MaxBackups,
	}
	for key, dst := range ints {
		if v := os.Getenv(envPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv(envPrefix + "AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_ENABLED: %w", envPrefix, err)
		}
		cfg.Auth.Enabled = enabled
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
