package orm

import (
	"context"
	"fmt"

	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/schema"
)

// Collection is the runtime pairing of a bound model with its
// connection's adapter, produced by a successful initialize. CRUD calls
// delegate to the adapter's record store; adapters without one serve
// schema definition only and reject record operations.
type Collection struct {
	model   *schema.Model
	backend adapter.Adapter
}

// Model returns the collection's bound schema.
func (c *Collection) Model() *schema.Model { return c.model }

// Name returns the model name the collection is keyed by.
func (c *Collection) Name() string { return c.model.Name }

// Adapter returns the adapter instance backing this collection.
func (c *Collection) Adapter() adapter.Adapter { return c.backend }

func (c *Collection) store() (adapter.RecordStore, error) {
	store, ok := c.backend.(adapter.RecordStore)
	if !ok {
		return nil, fmt.Errorf("adapter %q does not support record operations", c.backend.Identity())
	}
	return store, nil
}

// Create inserts one record.
func (c *Collection) Create(ctx context.Context, values map[string]any) (map[string]any, error) {
	store, err := c.store()
	if err != nil {
		return nil, err
	}
	return store.Create(ctx, c.model.Name, values)
}

// Find returns all records matching the criteria.
func (c *Collection) Find(ctx context.Context, criteria map[string]any) ([]map[string]any, error) {
	store, err := c.store()
	if err != nil {
		return nil, err
	}
	return store.Find(ctx, c.model.Name, criteria)
}

// Update modifies matching records and returns the affected count.
func (c *Collection) Update(ctx context.Context, criteria, values map[string]any) (int, error) {
	store, err := c.store()
	if err != nil {
		return 0, err
	}
	return store.Update(ctx, c.model.Name, criteria, values)
}

// Destroy removes matching records and returns the affected count.
func (c *Collection) Destroy(ctx context.Context, criteria map[string]any) (int, error) {
	store, err := c.store()
	if err != nil {
		return 0, err
	}
	return store.Destroy(ctx, c.model.Name, criteria)
}
