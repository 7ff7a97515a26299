package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/berth-orm/berth/internal/cli/output"
	"github.com/berth-orm/berth/pkg/orm"
	"github.com/berth-orm/berth/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and model definitions",
	Long: `Validate the configuration without starting anything: checks that
every connection references a known adapter, that migrate strategies are
from the valid set, and that every model resolves to a declared
connection. Model definitions are read from models_dir when set.`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Dry-run the connection validation against the built-in factories.
	registry := newRegistry()
	if err := registry.Load(cfg.Adapters, cfg.Development()); err != nil {
		return err
	}
	if err := orm.ValidateConnections(cfg.Connections, registry); err != nil {
		return err
	}

	var models map[string]*schema.Model
	if cfg.ModelsDir != "" {
		models, err = schema.LoadDir(cfg.ModelsDir)
		if err != nil {
			return fmt.Errorf("failed to load models: %w", err)
		}
		for _, model := range models {
			connection := model.Connection
			if connection == "" {
				connection = cfg.DefaultConnection
			}
			if _, exists := cfg.Connections[connection]; !exists {
				return fmt.Errorf("model %q references connection %q: %w", model.Name, connection, orm.ErrUnknownConnection)
			}
		}
	}

	table := output.NewTable("connection", "adapter", "migrate")
	for name, conn := range cfg.Connections {
		table.AddRow(name, conn.Adapter, string(conn.Migrate))
	}
	table.Render(os.Stdout)

	fmt.Printf("\nConfiguration valid: %d adapter(s), %d connection(s), %d model(s)\n",
		len(cfg.Adapters), len(cfg.Connections), len(models))
	return nil
}
