// Package config loads and validates the berth configuration: adapter
// settings, named connections, the default connection, and ambient options
// (logging, metrics, timeouts).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/berth-orm/berth/pkg/schema"
)

// Environments recognized by the lifecycle. Only "development" changes
// behavior (missing-adapter remediation hints); everything else is
// treated as production-like.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the berth configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (BERTH_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	// Environment selects the execution mode (development, production).
	Environment string `mapstructure:"environment" validate:"required" yaml:"environment"`

	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// DefaultConnection names the connection assigned to models that do
	// not declare one.
	DefaultConnection string `mapstructure:"default_connection" validate:"required" yaml:"default_connection"`

	// Adapters maps adapter names to adapter-level settings. Every key
	// must have a factory registered with the adapter registry.
	Adapters map[string]map[string]any `mapstructure:"adapters" yaml:"adapters"`

	// Connections maps connection names to their configuration. Values
	// are pointers so validation can default the migrate strategy in
	// place.
	Connections map[string]*Connection `mapstructure:"connections" validate:"dive" yaml:"connections"`

	// Globals controls the optional process-wide collection export.
	Globals GlobalsConfig `mapstructure:"globals" yaml:"globals"`

	// ModelsDir is an optional directory of YAML model definitions loaded
	// by the CLI. Hosts that register models programmatically leave it
	// empty.
	ModelsDir string `mapstructure:"models_dir" yaml:"models_dir,omitempty"`

	// InitializeTimeout bounds the storage-engine bring-up during
	// initialize. The underlying engines advertise no timeout of their
	// own, so the lifecycle imposes this one.
	InitializeTimeout time.Duration `mapstructure:"initialize_timeout" validate:"required,gt=0" yaml:"initialize_timeout"`

	// TeardownTimeout bounds adapter teardown.
	TeardownTimeout time.Duration `mapstructure:"teardown_timeout" validate:"required,gt=0" yaml:"teardown_timeout"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// Development reports whether the execution mode is "development".
func (c *Config) Development() bool {
	return c.Environment == EnvDevelopment
}

// Connection binds a set of models to one adapter instance plus a
// migration strategy. Keys beyond adapter/migrate are adapter-specific
// settings passed through opaquely (file paths, DSNs, pool sizes).
type Connection struct {
	// Adapter names the adapter backing this connection. It must exist in
	// the adapter registry at validation time.
	Adapter string `mapstructure:"adapter" validate:"required" yaml:"adapter"`

	// Migrate is the schema reconciliation strategy handed to the
	// adapter. Empty means "not specified"; validation defaults it to
	// alter with a warning.
	Migrate schema.MigrateStrategy `mapstructure:"migrate" validate:"omitempty,oneof=safe alter drop" yaml:"migrate,omitempty"`

	// Settings collects the remaining adapter-specific keys.
	Settings map[string]any `mapstructure:",remain" yaml:",inline"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level: DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is the output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// GlobalsConfig controls process-wide collection publishing.
type GlobalsConfig struct {
	// Models enables exporting each live collection under its model's
	// capitalized global identifier via ORM.Globals().
	Models bool `mapstructure:"models" yaml:"models"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
// When Enabled is false no metrics are collected.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath uses the default location
// ($XDG_CONFIG_HOME/berth/config.yaml).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !configFileFound {
		return GetDefaultConfig(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig writes the configuration to path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: connection settings may contain credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setupViper configures environment variable and config file handling.
func setupViper(v *viper.Viper, configPath string) {
	// Example: BERTH_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("BERTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the decode hooks for custom config types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64.
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, honoring
// XDG_CONFIG_HOME.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "berth")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "berth")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
