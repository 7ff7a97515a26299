package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// modelFile mirrors the on-disk YAML layout of a model definition.
// Attributes is kept as a raw yaml.Node so mapping order survives decoding;
// Go maps would lose the declaration order that association extraction
// depends on.
type modelFile struct {
	Name       string          `yaml:"name"`
	GlobalID   string          `yaml:"global_id"`
	Connection string          `yaml:"connection"`
	Migrate    MigrateStrategy `yaml:"migrate"`
	Attributes yaml.Node       `yaml:"attributes"`
}

// LoadFile parses a single YAML model definition. The model name defaults
// to the file's base name (without extension) when the document omits it.
func LoadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	model, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("model file %q: %w", path, err)
	}

	if model.Name == "" {
		base := filepath.Base(path)
		model.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("model file %q: %w", path, err)
	}
	return model, nil
}

// Parse decodes a YAML model definition, preserving attribute order.
func Parse(data []byte) (*Model, error) {
	var file modelFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse model definition: %w", err)
	}

	model := &Model{
		Name:       file.Name,
		GlobalID:   file.GlobalID,
		Connection: file.Connection,
		Migrate:    file.Migrate,
	}

	if file.Attributes.Kind == 0 {
		return model, nil
	}
	if file.Attributes.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("attributes must be a mapping")
	}

	// A YAML mapping node stores keys and values interleaved in
	// declaration order.
	content := file.Attributes.Content
	for i := 0; i+1 < len(content); i += 2 {
		keyNode, valNode := content[i], content[i+1]

		var def AttributeDef
		if valNode.Kind == yaml.ScalarNode {
			// Shorthand: "name: string" declares a scalar attribute.
			def.Type = valNode.Value
		} else if err := valNode.Decode(&def); err != nil {
			return nil, fmt.Errorf("attribute %q: %w", keyNode.Value, err)
		}

		model.Attributes = append(model.Attributes, Attribute{
			Name: keyNode.Value,
			Def:  def,
		})
	}

	return model, nil
}

// LoadDir loads every .yaml/.yml model definition in dir, sorted by file
// name for deterministic ordering. Returns an error if two files declare
// the same model name.
func LoadDir(dir string) (map[string]*Model, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".yaml", ".yml":
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	models := make(map[string]*Model, len(names))
	for _, name := range names {
		model, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if _, exists := models[model.Name]; exists {
			return nil, fmt.Errorf("duplicate model %q declared in %q", model.Name, name)
		}
		models[model.Name] = model
	}

	return models, nil
}
