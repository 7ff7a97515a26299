package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks structural validity of the configuration (tag-driven).
// Cross-referential checks (connections against loaded adapters) belong
// to the lifecycle's connection validation, which also needs the adapter
// registry; this only rejects configurations that are malformed on their
// own.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	// Connections referenced by name elsewhere must not clash with the
	// empty string; viper lowercases keys, so this is the authoring-side
	// check only.
	for name, conn := range cfg.Connections {
		if name == "" {
			return fmt.Errorf("connection with empty name")
		}
		if conn == nil {
			return fmt.Errorf("connection %q has no configuration", name)
		}
	}

	return nil
}
