package orm

import (
	"context"
	"fmt"

	"github.com/berth-orm/berth/internal/logger"
	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/config"
	"github.com/berth-orm/berth/pkg/schema"
)

// BindModel assigns a model to its connection and submits the enriched
// schema to the connection's adapter.
//
// A model with no explicit connection gets the configured default. The
// resolved connection's migrate strategy is copied onto the model;
// model-level migrate overrides are not supported, only the connection
// decides. A rejection by the adapter (malformed schema, naming
// collision) is fatal and names the offending model; nothing is
// partially registered.
func BindModel(ctx context.Context, model *Binding, connections map[string]*config.Connection, defaultConnection string, adapters *adapter.Registry) error {
	if model.Schema.Connection == "" {
		model.Schema.Connection = defaultConnection
	}

	conn, exists := connections[model.Schema.Connection]
	if !exists {
		return fmt.Errorf("model %q references connection %q: %w", model.Schema.Name, model.Schema.Connection, ErrUnknownConnection)
	}

	model.Schema.Migrate = conn.Migrate

	instance, err := adapters.Get(conn.Adapter)
	if err != nil {
		return fmt.Errorf("model %q: %w", model.Schema.Name, err)
	}

	if err := instance.Define(ctx, model.Schema, conn.Settings); err != nil {
		return &ModelRegistrationError{Model: model.Schema.Name, Err: err}
	}

	model.Adapter = instance
	logger.Debug("Model bound",
		"model", model.Schema.Name,
		"connection", model.Schema.Connection,
		"adapter", conn.Adapter,
		"migrate", model.Schema.Migrate)
	return nil
}

// Binding pairs a model schema with the adapter it was submitted to.
// Adapter is nil until BindModel succeeds.
type Binding struct {
	Schema  *schema.Model
	Adapter adapter.Adapter
}
