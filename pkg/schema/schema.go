// Package schema defines the declarative model description consumed by the
// ORM lifecycle: models, attributes, relational associations, and the
// migration strategy carried through to storage adapters.
package schema

import (
	"fmt"
	"strings"
)

// MigrateStrategy tells a storage adapter how to reconcile a model's schema
// against existing data when the model is defined.
type MigrateStrategy string

const (
	// MigrateSafe never alters existing structures.
	MigrateSafe MigrateStrategy = "safe"

	// MigrateAlter extends existing structures in place, preserving data.
	// This is the default applied to connections that do not specify one.
	MigrateAlter MigrateStrategy = "alter"

	// MigrateDrop destroys and recreates structures on every initialize.
	MigrateDrop MigrateStrategy = "drop"
)

// Valid reports whether s is a member of the closed strategy set.
func (s MigrateStrategy) Valid() bool {
	switch s {
	case MigrateSafe, MigrateAlter, MigrateDrop:
		return true
	}
	return false
}

// AttributeDef describes a single model attribute. It is either a scalar
// (Type set) or a relational descriptor carrying exactly one of Model
// (singular reference) or Collection (plural reference), optionally with
// Via naming the inverse attribute on the referenced model.
//
// Rules carries attribute-level validation rules. They are opaque to the
// lifecycle layer and are passed through to adapters untouched.
type AttributeDef struct {
	Type       string         `yaml:"type,omitempty"`
	Model      string         `yaml:"model,omitempty"`
	Collection string         `yaml:"collection,omitempty"`
	Via        string         `yaml:"via,omitempty"`
	Required   bool           `yaml:"required,omitempty"`
	Rules      map[string]any `yaml:"rules,omitempty"`
}

// Relational reports whether the attribute references another model.
func (d AttributeDef) Relational() bool {
	return d.Model != "" || d.Collection != ""
}

// Attribute pairs an attribute name with its definition. Models hold
// attributes as an ordered slice because declaration order is semantic:
// association extraction must preserve it.
type Attribute struct {
	Name string
	Def  AttributeDef
}

// Model is a declarative schema definition for one entity.
//
// Connection and Migrate may be empty when the model is authored; the model
// binder fills them in (default connection, connection-level strategy)
// before the model is submitted to its adapter. Associations is populated
// by ExtractAssociations and classified by ClassifyAssociations.
type Model struct {
	Name       string
	GlobalID   string
	Connection string
	Migrate    MigrateStrategy
	Attributes []Attribute

	Associations []Association
}

// Attribute returns the definition of the named attribute.
func (m *Model) Attribute(name string) (AttributeDef, bool) {
	for _, attr := range m.Attributes {
		if attr.Name == name {
			return attr.Def, true
		}
	}
	return AttributeDef{}, false
}

// GlobalName returns the identifier under which the model is exported when
// global publishing is enabled: the explicit GlobalID if set, otherwise the
// capitalized model name.
func (m *Model) GlobalName() string {
	if m.GlobalID != "" {
		return m.GlobalID
	}
	if m.Name == "" {
		return ""
	}
	return strings.ToUpper(m.Name[:1]) + m.Name[1:]
}

// Validate performs structural checks on an authored model: a non-empty
// name, and relational attributes carrying exactly one of model/collection.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	for _, attr := range m.Attributes {
		if attr.Name == "" {
			return fmt.Errorf("model %q: attribute name cannot be empty", m.Name)
		}
		if attr.Def.Model != "" && attr.Def.Collection != "" {
			return fmt.Errorf("model %q: attribute %q carries both model and collection references",
				m.Name, attr.Name)
		}
		if attr.Def.Via != "" && !attr.Def.Relational() {
			return fmt.Errorf("model %q: attribute %q has via but no model or collection reference",
				m.Name, attr.Name)
		}
	}
	if m.Migrate != "" && !m.Migrate.Valid() {
		return fmt.Errorf("model %q: unknown migrate strategy %q", m.Name, m.Migrate)
	}
	return nil
}
