package commands

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/berth-orm/berth/internal/cli/output"
	"github.com/berth-orm/berth/pkg/schema"
)

var associationsOutput string

var associationsCmd = &cobra.Command{
	Use:   "associations",
	Short: "Resolve and show model associations",
	Long: `Load every model from models_dir, run the association resolution
passes, and print each relational attribute with its classified nature.
Dangling via references are reported as diagnostics, not errors.`,
	RunE: runAssociations,
}

func init() {
	associationsCmd.Flags().StringVarP(&associationsOutput, "output", "o", "table", "Output format: table, json, yaml")
}

type associationRow struct {
	Model  string `json:"model" yaml:"model"`
	Alias  string `json:"alias" yaml:"alias"`
	Type   string `json:"type" yaml:"type"`
	Target string `json:"target" yaml:"target"`
	Via    string `json:"via,omitempty" yaml:"via,omitempty"`
	Nature string `json:"nature,omitempty" yaml:"nature,omitempty"`
}

func runAssociations(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(associationsOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ModelsDir == "" {
		return fmt.Errorf("models_dir is not configured")
	}

	models, err := schema.LoadDir(cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	for _, model := range models {
		model.Associations = schema.ExtractAssociations(model)
	}
	diagnostics := schema.ClassifyAssociations(models)

	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []associationRow
	for _, name := range names {
		for _, assoc := range models[name].Associations {
			rows = append(rows, associationRow{
				Model:  name,
				Alias:  assoc.Alias,
				Type:   string(assoc.Type),
				Target: assoc.Target(),
				Via:    assoc.Via,
				Nature: string(assoc.Nature),
			})
		}
	}

	switch format {
	case output.FormatJSON:
		if err := output.PrintJSON(os.Stdout, rows); err != nil {
			return err
		}
	case output.FormatYAML:
		if err := output.PrintYAML(os.Stdout, rows); err != nil {
			return err
		}
	default:
		table := output.NewTable("model", "alias", "type", "target", "via", "nature")
		for _, row := range rows {
			nature := row.Nature
			if nature == "" {
				nature = "(unresolved)"
			}
			table.AddRow(row.Model, row.Alias, row.Type, row.Target, row.Via, nature)
		}
		table.Render(os.Stdout)
	}

	for _, diag := range diagnostics {
		fmt.Fprintf(os.Stderr, "warning: %s\n", diag)
	}
	return nil
}
