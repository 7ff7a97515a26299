// Package memory provides an in-memory storage adapter. It is the default
// backend for development and tests: records live in process memory and
// are lost at teardown.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/schema"
)

// Name is the adapter identity registered with the adapter registry.
const Name = "memory"

var (
	_ adapter.Adapter     = (*Adapter)(nil)
	_ adapter.Teardowner  = (*Adapter)(nil)
	_ adapter.RecordStore = (*Adapter)(nil)
)

// Adapter is an in-memory storage engine. It implements the full record
// CRUD contract and the optional teardown operation.
type Adapter struct {
	mu          sync.RWMutex
	collections map[string]*collection
	ready       bool
}

type collection struct {
	model   *schema.Model
	records []map[string]any
}

// New constructs the adapter. The settings map is accepted for factory
// compatibility; the memory engine has no settings.
func New(settings map[string]any) (*Adapter, error) {
	return &Adapter{collections: make(map[string]*collection)}, nil
}

// Factory adapts New to the registry's factory signature.
func Factory(settings map[string]any) (adapter.Adapter, error) {
	return New(settings)
}

// Identity returns the adapter name.
func (a *Adapter) Identity() string { return Name }

// Initialize marks the engine ready. There is nothing to bring up, but
// the readiness flag lets Define reject use before initialization.
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ready = true
	return nil
}

// Define registers a model's collection. On an instance reused across
// Teardown and Initialize, a drop strategy discards the retained records
// while safe and alter keep them. Hosts that rebuild the adapter from its
// factory start empty either way. Defining the same collection twice in
// one lifecycle is a naming collision.
func (a *Adapter) Define(ctx context.Context, model *schema.Model, settings map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.ready {
		return fmt.Errorf("memory adapter not initialized")
	}

	existing, exists := a.collections[model.Name]
	if exists && existing.model != nil {
		return fmt.Errorf("collection %q already defined", model.Name)
	}

	records := []map[string]any(nil)
	if exists && model.Migrate != schema.MigrateDrop {
		records = existing.records
	}
	a.collections[model.Name] = &collection{model: model, records: records}
	return nil
}

// Teardown detaches every collection from its model but keeps the record
// slices, so a caller holding the same instance can Initialize and Define
// again without losing data. Data does not survive a factory rebuild.
func (a *Adapter) Teardown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for name, coll := range a.collections {
		a.collections[name] = &collection{records: coll.records}
	}
	a.ready = false
	return nil
}

// Create inserts one record, assigning a generated id when absent.
func (a *Adapter) Create(ctx context.Context, collectionName string, values map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	coll, err := a.defined(collectionName)
	if err != nil {
		return nil, err
	}

	record := make(map[string]any, len(values)+1)
	maps.Copy(record, values)
	if _, ok := record["id"]; !ok {
		record["id"] = uuid.New().String()
	}

	coll.records = append(coll.records, record)
	return copyRecord(record), nil
}

// Find returns all records matching the criteria by field equality.
func (a *Adapter) Find(ctx context.Context, collectionName string, criteria map[string]any) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	coll, err := a.defined(collectionName)
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for _, record := range coll.records {
		if matches(record, criteria) {
			results = append(results, copyRecord(record))
		}
	}
	return results, nil
}

// Update modifies all matching records in place.
func (a *Adapter) Update(ctx context.Context, collectionName string, criteria, values map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	coll, err := a.defined(collectionName)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, record := range coll.records {
		if matches(record, criteria) {
			maps.Copy(record, values)
			changed++
		}
	}
	return changed, nil
}

// Destroy removes all matching records.
func (a *Adapter) Destroy(ctx context.Context, collectionName string, criteria map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	coll, err := a.defined(collectionName)
	if err != nil {
		return 0, err
	}

	kept := coll.records[:0]
	removed := 0
	for _, record := range coll.records {
		if matches(record, criteria) {
			removed++
			continue
		}
		kept = append(kept, record)
	}
	coll.records = kept
	return removed, nil
}

// defined returns the named collection or an error when it has not been
// defined in the current lifecycle. Caller must hold mu.
func (a *Adapter) defined(name string) (*collection, error) {
	coll, exists := a.collections[name]
	if !exists || coll.model == nil {
		return nil, fmt.Errorf("collection %q not defined", name)
	}
	return coll, nil
}

func matches(record, criteria map[string]any) bool {
	for key, want := range criteria {
		if record[key] != want {
			return false
		}
	}
	return true
}

func copyRecord(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	maps.Copy(out, record)
	return out
}
