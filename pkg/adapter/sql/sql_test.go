package sql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-orm/berth/pkg/schema"
)

func testModel(name string, migrate schema.MigrateStrategy, attrs ...schema.Attribute) *schema.Model {
	if attrs == nil {
		attrs = []schema.Attribute{
			{Name: "label", Def: schema.AttributeDef{Type: "string"}},
		}
	}
	return &schema.Model{
		Name:       name,
		Connection: "default",
		Migrate:    migrate,
		Attributes: attrs,
	}
}

func openAdapter(t *testing.T, path string) *Adapter {
	t.Helper()
	a, err := New(map[string]any{"dialect": "sqlite", "path": path})
	require.NoError(t, err)
	require.NoError(t, a.Initialize(context.Background()))
	t.Cleanup(func() { a.Teardown(context.Background()) })
	return a
}

func TestSettingsValidation(t *testing.T) {
	_, err := New(map[string]any{"dialect": "oracle"})
	assert.Error(t, err)

	_, err = New(map[string]any{"dialect": "postgres"})
	assert.Error(t, err, "postgres without host must be rejected")

	a, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, a.settings.Dialect)
	assert.Equal(t, ":memory:", a.settings.Path)
}

func TestCRUDRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := openAdapter(t, filepath.Join(t.TempDir(), "berth.db"))
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))

	created, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	assert.NotEmpty(t, created["id"])

	found, err := a.Find(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	n, err := a.Update(ctx, "pet", map[string]any{"label": "rex"}, map[string]any{"label": "max"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = a.Destroy(ctx, "pet", map[string]any{"label": "max"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err = a.Find(ctx, "pet", nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestSafeRequiresExistingTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "berth.db")

	a := openAdapter(t, path)
	err := a.Define(ctx, testModel("pet", schema.MigrateSafe), nil)
	assert.Error(t, err, "safe must not create tables")

	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))
	require.NoError(t, a.Teardown(ctx))

	a = openAdapter(t, path)
	assert.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateSafe), nil))
}

func TestAlterAddsMissingColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "berth.db")

	a := openAdapter(t, path)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))
	_, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	require.NoError(t, a.Teardown(ctx))

	wider := testModel("pet", schema.MigrateAlter,
		schema.Attribute{Name: "label", Def: schema.AttributeDef{Type: "string"}},
		schema.Attribute{Name: "age", Def: schema.AttributeDef{Type: "integer"}},
	)
	a = openAdapter(t, path)
	require.NoError(t, a.Define(ctx, wider, nil))

	created, err := a.Create(ctx, "pet", map[string]any{"label": "max", "age": 3})
	require.NoError(t, err)
	assert.NotEmpty(t, created["id"])

	found, err := a.Find(ctx, "pet", nil)
	require.NoError(t, err)
	assert.Len(t, found, 2, "existing rows survive an alter migration")
}

func TestDropRecreatesTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "berth.db")

	a := openAdapter(t, path)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))
	_, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	require.NoError(t, a.Teardown(ctx))

	a = openAdapter(t, path)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateDrop), nil))
	found, err := a.Find(ctx, "pet", nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAssociationColumns(t *testing.T) {
	ctx := context.Background()
	a := openAdapter(t, filepath.Join(t.TempDir(), "berth.db"))

	model := testModel("pet", schema.MigrateAlter,
		schema.Attribute{Name: "label", Def: schema.AttributeDef{Type: "string"}},
		schema.Attribute{Name: "owner", Def: schema.AttributeDef{Model: "user"}},
		schema.Attribute{Name: "toys", Def: schema.AttributeDef{Collection: "toy", Via: "pet"}},
	)
	require.NoError(t, a.Define(ctx, model, nil))

	created, err := a.Create(ctx, "pet", map[string]any{"label": "rex", "owner": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", created["owner"])

	found, err := a.Find(ctx, "pet", map[string]any{"owner": "u1"})
	require.NoError(t, err)
	assert.Len(t, found, 1, "singular associations get a queryable column")
}
