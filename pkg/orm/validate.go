package orm

import (
	"fmt"
	"sort"

	"github.com/berth-orm/berth/internal/logger"
	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/config"
	"github.com/berth-orm/berth/pkg/schema"
)

// ValidateConnections checks every connection against the set of loaded
// adapters and normalizes migration strategies.
//
// A connection referencing an adapter absent from the registry is fatal:
// continuing would silently operate against an undefined backend. A
// connection with no migrate strategy is corrected in place to the
// default (alter) with a warning.
func ValidateConnections(connections map[string]*config.Connection, adapters *adapter.Registry) error {
	names := make([]string, 0, len(connections))
	for name := range connections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		conn := connections[name]

		if !adapters.Has(conn.Adapter) {
			return fmt.Errorf("connection %q references adapter %q: %w", name, conn.Adapter, ErrUnknownAdapter)
		}

		if conn.Migrate == "" {
			conn.Migrate = schema.MigrateAlter
			logger.Warn("Connection has no migrate strategy, defaulting",
				"connection", name,
				"migrate", schema.MigrateAlter)
			continue
		}
		if !conn.Migrate.Valid() {
			return fmt.Errorf("connection %q has invalid migrate strategy %q", name, conn.Migrate)
		}
	}
	return nil
}
