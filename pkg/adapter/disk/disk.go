// Package disk provides a BadgerDB-backed storage adapter. Records are
// stored as JSON documents under prefixed keys so collections occupy
// disjoint namespaces within one database.
package disk

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/berth-orm/berth/internal/logger"
	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/schema"
)

// Name is the adapter identity registered with the adapter registry.
const Name = "disk"

var (
	_ adapter.Adapter     = (*Adapter)(nil)
	_ adapter.Teardowner  = (*Adapter)(nil)
	_ adapter.RecordStore = (*Adapter)(nil)
)

// Key namespace prefixes. Records live under "r:<collection>:<uuid>";
// collection markers under "c:<collection>" record which collections have
// been defined so stale data from renamed models can be detected.
const (
	prefixRecord     = "r:"
	prefixCollection = "c:"
)

func keyRecord(collection, id string) []byte {
	return []byte(prefixRecord + collection + ":" + id)
}

func keyRecordPrefix(collection string) []byte {
	return []byte(prefixRecord + collection + ":")
}

func keyCollection(collection string) []byte {
	return []byte(prefixCollection + collection)
}

// Settings configures the adapter from its connection config.
type Settings struct {
	// Dir is the database directory. Required.
	Dir string `mapstructure:"dir"`
}

// Adapter persists records in an embedded BadgerDB instance.
type Adapter struct {
	settings Settings

	mu      sync.RWMutex
	db      *badger.DB
	defined map[string]struct{}
}

// New constructs the adapter from its settings map.
func New(settings map[string]any) (*Adapter, error) {
	var s Settings
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, fmt.Errorf("invalid disk adapter settings: %w", err)
	}
	if s.Dir == "" {
		return nil, fmt.Errorf("disk adapter requires a %q setting", "dir")
	}
	return &Adapter{settings: s, defined: make(map[string]struct{})}, nil
}

// Factory adapts New to the registry's factory signature.
func Factory(settings map[string]any) (adapter.Adapter, error) {
	return New(settings)
}

// Identity returns the adapter name.
func (a *Adapter) Identity() string { return Name }

// Initialize opens the database. Badger's own logger is silenced; open
// and close events go through the process logger instead.
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return nil
	}

	opts := badger.DefaultOptions(a.settings.Dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger database at %q: %w", a.settings.Dir, err)
	}

	a.db = db
	a.defined = make(map[string]struct{})
	logger.Debug("opened disk database", "dir", a.settings.Dir)
	return nil
}

// Define registers a model's collection. A drop strategy deletes every
// persisted record for that collection before marking it defined.
func (a *Adapter) Define(ctx context.Context, model *schema.Model, settings map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return fmt.Errorf("disk adapter not initialized")
	}
	if _, exists := a.defined[model.Name]; exists {
		return fmt.Errorf("collection %q already defined", model.Name)
	}

	if model.Migrate == schema.MigrateDrop {
		if err := a.dropRecords(model.Name); err != nil {
			return fmt.Errorf("failed to drop collection %q: %w", model.Name, err)
		}
	}

	err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyCollection(model.Name), []byte(string(model.Migrate)))
	})
	if err != nil {
		return fmt.Errorf("failed to define collection %q: %w", model.Name, err)
	}

	a.defined[model.Name] = struct{}{}
	return nil
}

// Teardown closes the database. Persisted records survive for the next
// lifecycle; only the open handle and the defined set are released.
func (a *Adapter) Teardown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}

	err := a.db.Close()
	a.db = nil
	a.defined = make(map[string]struct{})
	if err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	logger.Debug("closed disk database", "dir", a.settings.Dir)
	return nil
}

// Create inserts one record, assigning a generated id when absent.
func (a *Adapter) Create(ctx context.Context, collection string, values map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(collection); err != nil {
		return nil, err
	}

	record := make(map[string]any, len(values)+1)
	maps.Copy(record, values)
	id, ok := record["id"].(string)
	if !ok || id == "" {
		id = uuid.New().String()
		record["id"] = id
	}

	encoded, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyRecord(collection, id), encoded)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store record: %w", err)
	}
	return record, nil
}

// Find returns all records matching the criteria by field equality.
func (a *Adapter) Find(ctx context.Context, collection string, criteria map[string]any) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(collection); err != nil {
		return nil, err
	}

	var results []map[string]any
	err := a.db.View(func(txn *badger.Txn) error {
		return a.scan(txn, collection, func(record map[string]any) error {
			if matches(record, criteria) {
				results = append(results, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %q: %w", collection, err)
	}
	return results, nil
}

// Update modifies all matching records and rewrites them in place.
func (a *Adapter) Update(ctx context.Context, collection string, criteria, values map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(collection); err != nil {
		return 0, err
	}

	changed := 0
	err := a.db.Update(func(txn *badger.Txn) error {
		changed = 0
		return a.scan(txn, collection, func(record map[string]any) error {
			if !matches(record, criteria) {
				return nil
			}
			maps.Copy(record, values)
			id, _ := record["id"].(string)
			encoded, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if err := txn.Set(keyRecord(collection, id), encoded); err != nil {
				return err
			}
			changed++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update collection %q: %w", collection, err)
	}
	return changed, nil
}

// Destroy removes all matching records.
func (a *Adapter) Destroy(ctx context.Context, collection string, criteria map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(collection); err != nil {
		return 0, err
	}

	removed := 0
	err := a.db.Update(func(txn *badger.Txn) error {
		removed = 0
		return a.scan(txn, collection, func(record map[string]any) error {
			if !matches(record, criteria) {
				return nil
			}
			id, _ := record["id"].(string)
			if err := txn.Delete(keyRecord(collection, id)); err != nil {
				return err
			}
			removed++
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to destroy in collection %q: %w", collection, err)
	}
	return removed, nil
}

// scan iterates every record of a collection, decoding each into a fresh
// map before invoking fn. Caller provides the transaction.
func (a *Adapter) scan(txn *badger.Txn, collection string, fn func(map[string]any) error) error {
	prefix := keyRecordPrefix(collection)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			var record map[string]any
			if err := json.Unmarshal(val, &record); err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			return fn(record)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// dropRecords deletes every record of a collection. Caller must hold mu.
func (a *Adapter) dropRecords(collection string) error {
	return a.db.DropPrefix(keyRecordPrefix(collection))
}

// check verifies the database is open and the collection defined. Caller
// must hold mu (read or write).
func (a *Adapter) check(collection string) error {
	if a.db == nil {
		return fmt.Errorf("disk adapter not initialized")
	}
	if _, exists := a.defined[collection]; !exists {
		return fmt.Errorf("collection %q not defined", collection)
	}
	return nil
}

// matches reports whether every criteria field equals the corresponding
// record field. Records decode from JSON with float64 numbers, so numeric
// values on both sides are coerced before comparison.
func matches(record, criteria map[string]any) bool {
	for key, want := range criteria {
		if normalize(record[key]) != normalize(want) {
			return false
		}
	}
	return true
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
