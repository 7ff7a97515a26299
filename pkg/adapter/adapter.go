// Package adapter defines the storage adapter contract and the registry
// that resolves configured adapter names to loaded implementations.
package adapter

import (
	"context"

	"github.com/berth-orm/berth/pkg/schema"
)

// Adapter is a loadable storage backend shared by every connection that
// references it.
//
// Lifecycle:
//  1. Construction: a Factory builds the adapter from its configured
//     settings when the registry loads.
//  2. Bring-up: Initialize() is called once per lifecycle initialize; it
//     must block until the engine is ready to accept schema definitions,
//     or until the context is done.
//  3. Definition: Define() is called once per bound model, carrying the
//     fully-annotated schema and the settings of the model's connection.
//  4. Release: if the adapter implements Teardowner, Teardown() is called
//     once during lifecycle teardown.
//
// Implementations must be safe for concurrent use after Initialize
// returns; Initialize/Define/Teardown themselves are serialized by the
// lifecycle controller.
type Adapter interface {
	// Identity returns the configured adapter name.
	Identity() string

	// Initialize brings up the storage engine, blocking until it is ready
	// or ctx is done.
	Initialize(ctx context.Context) error

	// Define submits an enriched model schema for collection registration.
	// The model carries its resolved connection name and migrate strategy;
	// settings are the adapter-specific keys of that connection.
	//
	// A malformed schema or a naming collision is a registration error and
	// must be reported, not silently ignored.
	Define(ctx context.Context, model *schema.Model, settings map[string]any) error
}

// Teardowner is implemented by adapters that hold releasable resources.
// Adapters without it are simply dropped at teardown.
type Teardowner interface {
	// Teardown releases the engine's resources. It must be safe to call
	// even if Initialize failed partway.
	Teardown(ctx context.Context) error
}

// RecordStore is the CRUD contract live collections delegate to. Records
// are schemaless maps; their interpretation is entirely the adapter's
// concern. The lifecycle layer only wires collections to this interface.
type RecordStore interface {
	// Create inserts one record and returns it with any adapter-assigned
	// fields (such as a generated id) filled in.
	Create(ctx context.Context, collection string, values map[string]any) (map[string]any, error)

	// Find returns all records matching the criteria; an empty or nil
	// criteria matches everything.
	Find(ctx context.Context, collection string, criteria map[string]any) ([]map[string]any, error)

	// Update modifies all records matching the criteria and returns the
	// number of records changed.
	Update(ctx context.Context, collection string, criteria, values map[string]any) (int, error)

	// Destroy removes all records matching the criteria and returns the
	// number of records removed.
	Destroy(ctx context.Context, collection string, criteria map[string]any) (int, error)
}
