// Package sql provides a GORM-backed storage adapter supporting SQLite
// and PostgreSQL through the same codebase. Collections map to tables
// and the migrate strategy of each model maps to real DDL behavior.
package sql

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/berth-orm/berth/pkg/adapter"
	"github.com/berth-orm/berth/pkg/schema"
)

// Name is the adapter identity registered with the adapter registry.
const Name = "sql"

var (
	_ adapter.Adapter     = (*Adapter)(nil)
	_ adapter.Teardowner  = (*Adapter)(nil)
	_ adapter.RecordStore = (*Adapter)(nil)
)

// DialectSQLite and DialectPostgres are the supported database backends.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Settings configures the adapter from its connection config.
type Settings struct {
	// Dialect selects the backend. Default: sqlite.
	Dialect string `mapstructure:"dialect"`

	// Path is the SQLite database file. ":memory:" gives an in-process
	// database that vanishes at teardown.
	Path string `mapstructure:"path"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

func (s *Settings) applyDefaults() {
	if s.Dialect == "" {
		s.Dialect = DialectSQLite
	}
	if s.Dialect == DialectSQLite && s.Path == "" {
		s.Path = ":memory:"
	}
	if s.Dialect == DialectPostgres {
		if s.Port == 0 {
			s.Port = 5432
		}
		if s.SSLMode == "" {
			s.SSLMode = "disable"
		}
	}
}

func (s *Settings) validate() error {
	switch s.Dialect {
	case DialectSQLite:
	case DialectPostgres:
		if s.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if s.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
		if s.User == "" {
			return fmt.Errorf("postgres user is required")
		}
	default:
		return fmt.Errorf("unsupported sql dialect: %s", s.Dialect)
	}
	return nil
}

// dsn returns the PostgreSQL connection string.
func (s *Settings) dsn() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		s.Host, s.Port, s.User, s.Password, s.Database)
	if s.SSLMode != "" {
		dsn += fmt.Sprintf(" sslmode=%s", s.SSLMode)
	}
	return dsn
}

// Adapter maps collections to SQL tables through GORM.
type Adapter struct {
	settings Settings

	mu      sync.RWMutex
	db      *gorm.DB
	defined map[string]struct{}
}

// New constructs the adapter from its settings map.
func New(settings map[string]any) (*Adapter, error) {
	var s Settings
	if err := mapstructure.Decode(settings, &s); err != nil {
		return nil, fmt.Errorf("invalid sql adapter settings: %w", err)
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid sql adapter settings: %w", err)
	}
	return &Adapter{settings: s, defined: make(map[string]struct{})}, nil
}

// Factory adapts New to the registry's factory signature.
func Factory(settings map[string]any) (adapter.Adapter, error) {
	return New(settings)
}

// Identity returns the adapter name.
func (a *Adapter) Identity() string { return Name }

// Initialize opens the database connection. GORM's logger is silenced;
// failures surface through the returned error.
func (a *Adapter) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return nil
	}

	var dialector gorm.Dialector
	switch a.settings.Dialect {
	case DialectSQLite:
		dsn := a.settings.Path
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
			// WAL for concurrent readers, busy_timeout to wait out
			// short-lived writer locks instead of failing immediately.
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
		dialector = sqlite.Open(dsn)
	case DialectPostgres:
		dialector = postgres.Open(a.settings.dsn())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	a.db = db
	a.defined = make(map[string]struct{})
	return nil
}

// Define creates or verifies the model's table according to its migrate
// strategy: safe only verifies the table exists, alter creates it or adds
// missing columns, drop discards it and recreates from scratch.
func (a *Adapter) Define(ctx context.Context, model *schema.Model, settings map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return fmt.Errorf("sql adapter not initialized")
	}
	if _, exists := a.defined[model.Name]; exists {
		return fmt.Errorf("collection %q already defined", model.Name)
	}

	db := a.db.WithContext(ctx)
	migrator := db.Migrator()

	switch model.Migrate {
	case schema.MigrateSafe:
		if !migrator.HasTable(model.Name) {
			return fmt.Errorf("table %q does not exist and migrate strategy %q forbids creating it", model.Name, schema.MigrateSafe)
		}

	case schema.MigrateDrop:
		if migrator.HasTable(model.Name) {
			if err := migrator.DropTable(model.Name); err != nil {
				return fmt.Errorf("failed to drop table %q: %w", model.Name, err)
			}
		}
		if err := a.createTable(db, model); err != nil {
			return err
		}

	default: // alter
		if !migrator.HasTable(model.Name) {
			if err := a.createTable(db, model); err != nil {
				return err
			}
			break
		}
		if err := a.extendTable(db, model); err != nil {
			return err
		}
	}

	a.defined[model.Name] = struct{}{}
	return nil
}

// Teardown closes the underlying connection pool.
func (a *Adapter) Teardown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db == nil {
		return nil
	}

	sqlDB, err := a.db.DB()
	a.db = nil
	a.defined = make(map[string]struct{})
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
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
	if id, ok := record["id"].(string); !ok || id == "" {
		record["id"] = uuid.New().String()
	}

	if err := a.db.WithContext(ctx).Table(collection).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to insert into %q: %w", collection, err)
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

	tx := a.db.WithContext(ctx).Table(collection)
	if len(criteria) > 0 {
		tx = tx.Where(criteria)
	}

	var results []map[string]any
	if err := tx.Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", collection, err)
	}
	return results, nil
}

// Update modifies all matching records and returns the affected count.
func (a *Adapter) Update(ctx context.Context, collection string, criteria, values map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(collection); err != nil {
		return 0, err
	}

	tx := a.db.WithContext(ctx).Table(collection)
	if len(criteria) > 0 {
		tx = tx.Where(criteria)
	} else {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}

	res := tx.Updates(values)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update %q: %w", collection, res.Error)
	}
	return int(res.RowsAffected), nil
}

// Destroy removes all matching records and returns the affected count.
func (a *Adapter) Destroy(ctx context.Context, collection string, criteria map[string]any) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.check(collection); err != nil {
		return 0, err
	}

	tx := a.db.WithContext(ctx).Table(collection)
	if len(criteria) > 0 {
		tx = tx.Where(criteria)
	} else {
		tx = tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}

	res := tx.Delete(nil)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete from %q: %w", collection, res.Error)
	}
	return int(res.RowsAffected), nil
}

// createTable builds the table from the model's scalar attributes.
// Singular associations get a TEXT foreign-key column named after the
// alias; collection associations live on the other side and get none.
func (a *Adapter) createTable(db *gorm.DB, model *schema.Model) error {
	cols := []string{quote("id") + " TEXT PRIMARY KEY"}
	for _, attr := range model.Attributes {
		if attr.Name == "id" {
			continue
		}
		col := columnDef(attr)
		if col == "" {
			continue
		}
		cols = append(cols, col)
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", quote(model.Name), strings.Join(cols, ", "))
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("failed to create table %q: %w", model.Name, err)
	}
	return nil
}

// extendTable adds columns for attributes missing from an existing table.
// Columns are never dropped or retyped under the alter strategy.
func (a *Adapter) extendTable(db *gorm.DB, model *schema.Model) error {
	types, err := db.Migrator().ColumnTypes(model.Name)
	if err != nil {
		return fmt.Errorf("failed to inspect table %q: %w", model.Name, err)
	}

	existing := make(map[string]struct{}, len(types))
	for _, ct := range types {
		existing[strings.ToLower(ct.Name())] = struct{}{}
	}

	for _, attr := range model.Attributes {
		if attr.Name == "id" {
			continue
		}
		if _, found := existing[strings.ToLower(attr.Name)]; found {
			continue
		}
		col := columnDef(attr)
		if col == "" {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(model.Name), col)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to add column %q to table %q: %w", attr.Name, model.Name, err)
		}
	}
	return nil
}

// columnDef returns the column clause for an attribute, or "" when the
// attribute has no column (collection associations).
func columnDef(attr schema.Attribute) string {
	if attr.Def.Collection != "" {
		return ""
	}
	if attr.Def.Model != "" {
		return quote(attr.Name) + " TEXT"
	}
	return quote(attr.Name) + " " + columnType(attr.Def.Type)
}

// columnType maps attribute types to SQL types accepted by both SQLite
// and PostgreSQL.
func columnType(attrType string) string {
	switch strings.ToLower(attrType) {
	case "integer":
		return "INTEGER"
	case "number", "float":
		return "NUMERIC"
	case "boolean":
		return "BOOLEAN"
	case "datetime", "date":
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, ``) + `"`
}

// check verifies the connection is open and the collection defined.
// Caller must hold mu (read or write).
func (a *Adapter) check(collection string) error {
	if a.db == nil {
		return fmt.Errorf("sql adapter not initialized")
	}
	if _, exists := a.defined[collection]; !exists {
		return fmt.Errorf("collection %q not defined", collection)
	}
	return nil
}
