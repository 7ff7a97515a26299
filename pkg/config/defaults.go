package config

import (
	"strings"
	"time"
)

// Default timeouts for the lifecycle's two bounded phases.
const (
	DefaultInitializeTimeout = 30 * time.Second
	DefaultTeardownTimeout   = 10 * time.Second
)

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = EnvProduction
	}

	applyLoggingDefaults(&cfg.Logging)

	if cfg.DefaultConnection == "" {
		cfg.DefaultConnection = "default"
	}
	if cfg.InitializeTimeout == 0 {
		cfg.InitializeTimeout = DefaultInitializeTimeout
	}
	if cfg.TeardownTimeout == 0 {
		cfg.TeardownTimeout = DefaultTeardownTimeout
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// GetDefaultConfig returns a configuration with every default applied and
// a single in-memory connection, suitable for development and tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Adapters: map[string]map[string]any{
			"memory": {},
		},
		Connections: map[string]*Connection{
			"default": {Adapter: "memory"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
