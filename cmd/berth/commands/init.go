package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/berth-orm/berth/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Write a sample configuration file with an in-memory adapter and a
single default connection. The file goes to the path given by --config,
or to $XDG_CONFIG_HOME/berth/config.yaml.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := config.SaveConfig(config.GetDefaultConfig(), path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration to declare adapters and connections")
	fmt.Println("  2. Put model definitions under models_dir")
	fmt.Println("  3. Run: berth start")
	return nil
}
