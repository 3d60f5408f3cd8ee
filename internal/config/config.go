// Package config loads CLI configuration with the precedence
// flags > environment > config file > defaults.
//
// Environment variables use the SKYLS_ prefix with underscores for nesting,
// e.g. SKYLS_DEFAULT_PROVIDER and SKYLS_LOGGING_LEVEL. The optional config
// file lives at $XDG_CONFIG_HOME/skyls/config.yaml (falling back to
// ~/.config/skyls/config.yaml).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all CLI settings.
type Config struct {
	// DefaultProvider is the scheme used when an invocation names no URI.
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`

	// ProjectID is sent as the x-goog-project-id header on bucket-scope
	// requests against providers that require it.
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`

	// Region overrides the storage region resolved from the environment.
	Region string `mapstructure:"region" yaml:"region"`

	// Endpoint overrides the storage service endpoint.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Profile selects a shared credentials profile.
	Profile string `mapstructure:"profile" yaml:"profile"`

	// RateLimit caps listing requests per second. Zero disables pacing.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

var (
	configMu  sync.Mutex
	appConfig *Config
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_provider", "gs")
	v.SetDefault("project_id", "")
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("profile", "")
	v.SetDefault("rate_limit", 0.0)
	v.SetDefault("logging.level", "info")
}

// Dir returns the user config directory for the CLI.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "skyls")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "skyls")
}

// Path returns the user config file path, or "" when the home directory
// cannot be determined.
func Path() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads configuration from defaults, the optional user config file, and
// SKYLS_-prefixed environment variables, in increasing precedence. The loaded
// config is cached for GetConfig.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SKYLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := Path(); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			// A missing file is the common case; anything else is a real error.
			if !errors.Is(err, os.ErrNotExist) {
				var nf viper.ConfigFileNotFoundError
				if !errors.As(err, &nf) {
					return nil, fmt.Errorf("failed to read config %s: %w", path, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	configMu.Lock()
	appConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

// GetConfig returns the most recently loaded config, or nil before Load.
func GetConfig() *Config {
	configMu.Lock()
	defer configMu.Unlock()
	return appConfig
}

// WriteDefault writes a commented starter config to the user config path,
// refusing to overwrite an existing file. It returns the path written.
func WriteDefault() (string, error) {
	path := Path()
	if path == "" {
		return "", errors.New("cannot determine config directory")
	}
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := Config{
		DefaultProvider: "gs",
		Logging:         LoggingConfig{Level: "info"},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	header := "# skyls configuration\n# Environment variables with the SKYLS_ prefix override these values.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return path, nil
}
