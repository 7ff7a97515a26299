// Package orm is the lifecycle controller binding declarative model
// schemas to pluggable storage adapters. It validates connections,
// resolves cross-model associations, and drives initialize, reload and
// teardown transitions over the adapter registry.
package orm

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/berth-orm/berth/internal/logger"
	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/config"
	"github.com/berth-orm/berth/pkg/metrics"
	"github.com/berth-orm/berth/pkg/schema"
)

// ORM owns the lifecycle of a model/connection/adapter graph. All state
// transitions are serialized: a second transition started while one is
// in flight is rejected with ErrTransitionInProgress rather than queued.
//
// The zero value is not usable; construct with New.
type ORM struct {
	cfg         *config.Config
	adapters    *adapter.Registry
	instruments *metrics.Lifecycle

	mu            sync.Mutex
	state         State
	transitioning bool
	models        map[string]*schema.Model
	collections   map[string]*Collection
	diagnostics   []schema.Diagnostic
	events        chan Event
}

// New creates an uninitialized controller. instruments may be nil to
// disable metrics collection.
func New(cfg *config.Config, adapters *adapter.Registry, instruments *metrics.Lifecycle) *ORM {
	return &ORM{
		cfg:         cfg,
		adapters:    adapters,
		instruments: instruments,
		state:       StateUninitialized,
		models:      make(map[string]*schema.Model),
		events:      make(chan Event, 16),
	}
}

// RegisterModel adds a model schema before initialization. Relational
// attributes are extracted into the model's association list here; their
// natures stay unresolved until initialize runs the global
// classification pass.
func (o *ORM) RegisterModel(model *schema.Model) error {
	if err := model.Validate(); err != nil {
		return fmt.Errorf("invalid model %q: %w", model.Name, err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateUninitialized || o.transitioning {
		return fmt.Errorf("cannot register model %q in state %s", model.Name, o.state)
	}
	if _, exists := o.models[model.Name]; exists {
		return fmt.Errorf("model %q: %w", model.Name, ErrModelAlreadyRegistered)
	}

	model.Associations = schema.ExtractAssociations(model)
	o.models[model.Name] = model
	return nil
}

// RegisterModels registers each model, stopping at the first failure.
func (o *ORM) RegisterModels(models ...*schema.Model) error {
	for _, model := range models {
		if err := o.RegisterModel(model); err != nil {
			return err
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (o *ORM) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Events returns the lifecycle notification channel. The channel is
// buffered and never closed; events are dropped, not queued, when the
// host does not drain it.
func (o *ORM) Events() <-chan Event { return o.events }

// Diagnostics returns the association-resolution diagnostics collected
// by the last initialize, such as dangling via references.
func (o *ORM) Diagnostics() []schema.Diagnostic {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.diagnostics)
}

// Collection returns a live collection by model name. Collections exist
// only in the Ready state.
func (o *ORM) Collection(name string) (*Collection, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateReady {
		return nil, fmt.Errorf("collection %q: %w (state %s)", name, ErrNotReady, o.state)
	}
	coll, exists := o.collections[name]
	if !exists {
		return nil, fmt.Errorf("no collection for model %q", name)
	}
	return coll, nil
}

// Collections returns all live collections keyed by model name.
func (o *ORM) Collections() map[string]*Collection {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]*Collection, len(o.collections))
	for name, coll := range o.collections {
		out[name] = coll
	}
	return out
}

// Globals returns live collections keyed by each model's capitalized
// global identifier. This is the explicit opt-in export step: nothing is
// published into any shared namespace, the host receives a mapping and
// decides what to do with it. Returns an empty map unless enabled in
// configuration.
func (o *ORM) Globals() map[string]*Collection {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[string]*Collection)
	if !o.cfg.Globals.Models {
		return out
	}
	for _, coll := range o.collections {
		out[coll.model.GlobalName()] = coll
	}
	return out
}

// Initialize brings the system up: load adapters, validate connections,
// bring up engines, bind every model, then classify associations across
// the full model set. Any fatal error leaves the controller in Failed.
func (o *ORM) Initialize(ctx context.Context) error {
	if err := o.begin(StateInitializing, StateUninitialized); err != nil {
		return err
	}

	started := time.Now()
	if err := o.initialize(ctx); err != nil {
		o.finish(StateFailed)
		return err
	}
	o.instruments.ObserveInitializeDuration(time.Since(started).Seconds())

	o.finish(StateReady)
	o.emit(Event{Type: EventInitialized})
	return nil
}

// Teardown stops every adapter that supports it, collecting errors. All
// adapters are attempted even when one fails; the first error is
// reported as the aggregate result. The controller always returns to
// Uninitialized, so a failed teardown does not wedge the process the way
// a failed initialize does.
func (o *ORM) Teardown(ctx context.Context) error {
	if err := o.begin(StateTearingDown, StateReady, StateFailed); err != nil {
		return err
	}

	err := o.teardown(ctx)
	o.finish(StateUninitialized)
	o.emit(Event{Type: EventTornDown, Err: err})
	return err
}

// Reload composes a full teardown with a fresh initialize as one
// exclusive transition. Any failure is fatal: the controller moves to
// Failed and requests a process stop, since a half-reloaded graph must
// not keep serving.
func (o *ORM) Reload(ctx context.Context) error {
	if err := o.begin(StateTearingDown, StateReady); err != nil {
		return err
	}

	if err := o.teardown(ctx); err != nil {
		logger.Error("Teardown during reload failed", "error", err)
		o.finish(StateFailed)
		o.emit(Event{Type: EventStopRequested, Err: err})
		return err
	}

	o.setState(StateInitializing)
	if err := o.initialize(ctx); err != nil {
		logger.Error("Re-initialize during reload failed", "error", err)
		o.finish(StateFailed)
		o.emit(Event{Type: EventStopRequested, Err: err})
		return err
	}

	o.finish(StateReady)
	o.emit(Event{Type: EventReloaded})
	logger.Info("Reload complete")
	return nil
}

// initialize runs the bring-up sequence. Caller holds the transition.
func (o *ORM) initialize(ctx context.Context) error {
	o.mu.Lock()
	modelCount := len(o.models)
	o.mu.Unlock()

	logger.Info("Initializing lifecycle",
		"models", modelCount,
		"connections", len(o.cfg.Connections),
		"environment", o.cfg.Environment)

	if err := o.adapters.Load(o.cfg.Adapters, o.cfg.Development()); err != nil {
		return err
	}

	if err := ValidateConnections(o.cfg.Connections, o.adapters); err != nil {
		return err
	}

	// Engine bring-up is the one asynchronous boundary: block until every
	// adapter signals readiness or the configured timeout expires.
	initCtx, cancel := context.WithTimeout(ctx, o.cfg.InitializeTimeout)
	defer cancel()

	for _, name := range o.adapters.Names() {
		instance, err := o.adapters.Get(name)
		if err != nil {
			return err
		}
		if err := instance.Initialize(initCtx); err != nil {
			return fmt.Errorf("failed to initialize adapter %q: %w", name, err)
		}
	}

	collections := make(map[string]*Collection, modelCount)
	for _, name := range o.modelNames() {
		o.mu.Lock()
		model := o.models[name]
		o.mu.Unlock()

		binding := &Binding{Schema: model}
		if err := BindModel(initCtx, binding, o.cfg.Connections, o.cfg.DefaultConnection, o.adapters); err != nil {
			return err
		}
		collections[name] = &Collection{model: model, backend: binding.Adapter}
	}

	// Global classification pass. It needs the full bound model set, so
	// it runs last; dangling via references surface as diagnostics, not
	// failures.
	o.mu.Lock()
	diagnostics := schema.ClassifyAssociations(o.models)
	o.collections = collections
	o.diagnostics = diagnostics
	o.mu.Unlock()

	for _, diag := range diagnostics {
		logger.Warn("Association nature left unresolved",
			"model", diag.Model,
			"alias", diag.Alias,
			"reason", diag.Reason)
	}

	o.instruments.SetLiveCollections(len(collections))
	logger.Info("Lifecycle ready", "collections", len(collections))
	return nil
}

// teardown releases every adapter. Caller holds the transition.
func (o *ORM) teardown(ctx context.Context) error {
	tdCtx, cancel := context.WithTimeout(ctx, o.cfg.TeardownTimeout)
	defer cancel()

	err := o.adapters.TeardownAll(tdCtx)

	o.mu.Lock()
	o.collections = nil
	o.mu.Unlock()

	o.instruments.SetLiveCollections(0)
	if err != nil {
		o.instruments.RecordTeardownError()
	}
	return err
}

// begin claims the single transition slot and moves to next if the
// current state is among the allowed origins.
func (o *ORM) begin(next State, allowed ...State) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.transitioning {
		return ErrTransitionInProgress
	}
	if !slices.Contains(allowed, o.state) {
		return fmt.Errorf("cannot enter %s from state %s", next, o.state)
	}

	o.instruments.RecordTransition(o.state.String(), next.String())
	o.state = next
	o.transitioning = true
	return nil
}

// setState moves between intermediate states of a held transition.
func (o *ORM) setState(next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.instruments.RecordTransition(o.state.String(), next.String())
	o.state = next
}

// finish releases the transition slot, settling on next.
func (o *ORM) finish(next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.instruments.RecordTransition(o.state.String(), next.String())
	o.state = next
	o.transitioning = false
}

// modelNames returns registered model names in sorted order so binding
// is deterministic.
func (o *ORM) modelNames() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	names := make([]string, 0, len(o.models))
	for name := range o.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
