package adapter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/berth-orm/berth/internal/logger"
)

// Factory builds an adapter instance from its configured settings.
// Factories are registered explicitly at startup; there is no dynamic
// module resolution and no install-on-missing side effect. When a
// configured name has no factory the registry reports
// ErrAdapterNotInstalled and lets the host decide remediation.
type Factory func(settings map[string]any) (Adapter, error)

// Registry owns loaded adapter instances and maps configured names to
// them. Instances are created by Load and released by TeardownAll; lookups
// in between are read-only and safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	adapters  map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		adapters:  make(map[string]Adapter),
	}
}

// RegisterFactory makes an adapter implementation available under name.
// Returns an error if the name is empty, the factory is nil, or the name
// is already claimed.
func (r *Registry) RegisterFactory(name string, factory Factory) error {
	if name == "" {
		return fmt.Errorf("cannot register adapter factory with empty name")
	}
	if factory == nil {
		return fmt.Errorf("cannot register nil adapter factory for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("adapter factory %q: %w", name, ErrFactoryAlreadyRegistered)
	}
	r.factories[name] = factory
	return nil
}

// Load constructs one adapter instance per entry of configs, resolving
// each name against the registered factories. Adapters load sequentially;
// they do not reference each other, so the order is irrelevant.
//
// A name with no factory is fatal. In development mode a remediation hint
// is logged first, since during development the missing adapter is usually
// an uninstalled dependency rather than a configuration typo.
func (r *Registry) Load(configs map[string]map[string]any, development bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Deterministic load order for reproducible logs.
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, exists := r.adapters[name]; exists {
			return fmt.Errorf("adapter %q: %w", name, ErrAdapterAlreadyLoaded)
		}

		factory, exists := r.factories[name]
		if !exists {
			if development {
				logger.Warn("Adapter is not installed; register its factory or remove it from the configuration",
					"adapter", name)
			}
			return fmt.Errorf("adapter %q: %w", name, ErrAdapterNotInstalled)
		}

		instance, err := factory(configs[name])
		if err != nil {
			return fmt.Errorf("failed to construct adapter %q: %w", name, err)
		}

		r.adapters[name] = instance
		logger.Debug("Adapter loaded", "adapter", name)
	}

	return nil
}

// Get retrieves a loaded adapter by name.
func (r *Registry) Get(name string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, exists := r.adapters[name]
	if !exists {
		return nil, fmt.Errorf("adapter %q: %w", name, ErrAdapterNotLoaded)
	}
	return instance, nil
}

// Has reports whether an adapter with the given name is loaded.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.adapters[name]
	return exists
}

// Names returns all loaded adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of loaded adapters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}

// TeardownAll releases every loaded adapter. Adapters implementing
// Teardowner are all given a chance to tear down even when an earlier one
// fails; the first error is reported after every adapter has been
// attempted. The registry is left empty (factories stay registered, so a
// subsequent Load can rebuild it).
func (r *Registry) TeardownAll(ctx context.Context) error {
	r.mu.Lock()
	instances := r.adapters
	r.adapters = make(map[string]Adapter)
	r.mu.Unlock()

	names := make([]string, 0, len(instances))
	for name := range instances {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		td, ok := instances[name].(Teardowner)
		if !ok {
			continue
		}
		logger.Debug("Tearing down adapter", "adapter", name)
		if err := td.Teardown(ctx); err != nil {
			logger.Error("Adapter teardown failed", "adapter", name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("adapter %q teardown: %w", name, err)
			}
		}
	}
	return firstErr
}
