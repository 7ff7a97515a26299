package disk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/berth-orm/berth/pkg/schema"
)

func testModel(name string, migrate schema.MigrateStrategy) *schema.Model {
	return &schema.Model{
		Name:       name,
		Connection: "default",
		Migrate:    migrate,
		Attributes: []schema.Attribute{
			{Name: "label", Def: schema.AttributeDef{Type: "string"}},
		},
	}
}

func openAdapter(t *testing.T, dir string) *Adapter {
	t.Helper()
	a, err := New(map[string]any{"dir": dir})
	require.NoError(t, err)
	require.NoError(t, a.Initialize(context.Background()))
	t.Cleanup(func() { a.Teardown(context.Background()) })
	return a
}

func TestNewRequiresDir(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestCRUDRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := openAdapter(t, t.TempDir())
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))

	created, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	assert.NotEmpty(t, created["id"])

	found, err := a.Find(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created["id"], found[0]["id"])

	n, err := a.Update(ctx, "pet", map[string]any{"label": "rex"}, map[string]any{"label": "max"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err = a.Find(ctx, "pet", map[string]any{"label": "max"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err = a.Destroy(ctx, "pet", map[string]any{"label": "max"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err = a.Find(ctx, "pet", nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestNumericCriteriaMatchStoredRecords(t *testing.T) {
	ctx := context.Background()
	a := openAdapter(t, t.TempDir())
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))

	created, err := a.Create(ctx, "pet", map[string]any{"label": "rex", "age": 3})
	require.NoError(t, err)

	// Records decode from JSON with float64 numbers; an int criterion
	// must still match.
	found, err := a.Find(ctx, "pet", map[string]any{"age": 3})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created["id"], found[0]["id"])

	n, err := a.Update(ctx, "pet", map[string]any{"age": 3}, map[string]any{"age": 4})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = a.Destroy(ctx, "pet", map[string]any{"age": int64(4)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUndefinedCollectionRejected(t *testing.T) {
	ctx := context.Background()
	a := openAdapter(t, t.TempDir())

	_, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	assert.Error(t, err)
}

func TestDefineCollision(t *testing.T) {
	ctx := context.Background()
	a := openAdapter(t, t.TempDir())
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))
	assert.Error(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))
}

func TestRecordsSurviveReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a := openAdapter(t, dir)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateSafe), nil))
	_, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	require.NoError(t, a.Teardown(ctx))

	a = openAdapter(t, dir)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateSafe), nil))
	found, err := a.Find(ctx, "pet", nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestDropDiscardsRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	a := openAdapter(t, dir)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateAlter), nil))
	_, err := a.Create(ctx, "pet", map[string]any{"label": "rex"})
	require.NoError(t, err)
	require.NoError(t, a.Teardown(ctx))

	a = openAdapter(t, dir)
	require.NoError(t, a.Define(ctx, testModel("pet", schema.MigrateDrop), nil))
	found, err := a.Find(ctx, "pet", nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
