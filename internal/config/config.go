package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents CLI configuration sourced from config files, environment
// variables, and flags.
type Config struct {
	Profile      string `mapstructure:"-" yaml:"-"`
	ConfigFile   string `mapstructure:"-" yaml:"-"`
	APIBaseURL   string `mapstructure:"api_url" yaml:"api_url"`
	HomeDir      string `mapstructure:"home" yaml:"home"`
	OutputFormat string `mapstructure:"format" yaml:"format"`
	SentryDSN    string `mapstructure:"sentry_dsn" yaml:"sentry_dsn,omitempty"`
}

type fileConfig struct {
	Config   Config            `mapstructure:",squash"`
	Profiles map[string]Config `mapstructure:"profiles"`
}

// DefaultHomeDir returns the default configuration directory.
func DefaultHomeDir() (string, error) {
	base, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(base, ".console"), nil
}

// Load reads configuration from config file, environment variables, and
// defaults.
func Load(path, profile string) (*Config, error) {
	cfg := defaultConfig()
	cfg.ConfigFile = path

	fc, err := readFileConfig(path)
	if err != nil {
		return nil, err
	}

	cfg.merge(fc.Config)

	if profile == "" {
		profile = cfg.Profile
	}
	if profile == "" {
		profile = "default"
	}
	if profile != "default" {
		if fc.Profiles == nil {
			return nil, fmt.Errorf("profile %q not defined in %s", profile, path)
		}

		profileCfg, ok := fc.Profiles[profile]
		if !ok {
			return nil, fmt.Errorf("profile %q not defined in %s", profile, path)
		}
		cfg.merge(profileCfg)
	}

	applyEnvOverrides(&cfg)

	cfg.Profile = profile

	return &cfg, nil
}

func defaultConfig() Config {
	home, _ := DefaultHomeDir()
	return Config{
		APIBaseURL:   "https://api.autosysadmin.io/api/v1",
		HomeDir:      home,
		OutputFormat: "table",
	}
}

// Default returns a default configuration with standard values.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

func readFileConfig(path string) (*fileConfig, error) {
	if path == "" {
		return &fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileConfig{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	return &fc, nil
}

func (c *Config) merge(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = strings.TrimRight(other.APIBaseURL, "/")
	}
	if other.HomeDir != "" {
		c.HomeDir = other.HomeDir
	}
	if other.OutputFormat != "" {
		c.OutputFormat = other.OutputFormat
	}
	if other.SentryDSN != "" {
		c.SentryDSN = other.SentryDSN
	}
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("CONSOLE_API_URL"); val != "" {
		cfg.APIBaseURL = strings.TrimRight(val, "/")
	}
	if val := os.Getenv("CONSOLE_HOME"); val != "" {
		cfg.HomeDir = val
	}
	if val := os.Getenv("CONSOLE_FORMAT"); val != "" {
		cfg.OutputFormat = val
	}
	if val := os.Getenv("CONSOLE_SENTRY_DSN"); val != "" {
		cfg.SentryDSN = val
	}
}
