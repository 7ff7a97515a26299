// Package commands implements the CLI commands for berth.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/berth-orm/berth/internal/logger"
	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/adapter/disk"
	"github.com/berth-orm/berth/pkg/adapter/memory"
	"github.com/berth-orm/berth/pkg/adapter/sql"
	"github.com/berth-orm/berth/pkg/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "berth",
	Short: "Berth - Model lifecycle manager",
	Long: `Berth binds declaratively defined data models to pluggable storage
adapters. It resolves model-to-model associations from schema metadata,
validates connection configuration, and manages initialize/reload/teardown
transitions for the storage engines backing those connections.

Use "berth [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it. This
// is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/berth/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(associationsCmd)
	rootCmd.AddCommand(startCmd)
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger configures the process logger from the loaded config.
func initLogger(cfg *config.Config) error {
	return logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// newRegistry returns a registry with the built-in adapter factories.
func newRegistry() *adapter.Registry {
	registry := adapter.NewRegistry()
	// Registration of built-ins cannot collide on an empty registry.
	_ = registry.RegisterFactory(memory.Name, memory.Factory)
	_ = registry.RegisterFactory(disk.Name, disk.Factory)
	_ = registry.RegisterFactory(sql.Name, sql.Factory)
	return registry
}
