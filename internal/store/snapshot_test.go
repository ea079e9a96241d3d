package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/pkg/core/logging"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(Config{
		Path:   filepath.Join(t.TempDir(), "db", "world.db"),
		Logger: logging.Wrap(nil, "store-test"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRegistry(t *testing.T) *registry.Memory {
	t.Helper()
	reg := registry.NewMemory(registry.Options{})
	position, err := reg.RegisterComponent("Position", 8)
	require.NoError(t, err)
	health, err := reg.RegisterComponent("Health", 4)
	require.NoError(t, err)

	a := reg.CreateEntity()
	require.NoError(t, reg.AddComponent(a, position, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, reg.AddComponent(a, health, []byte{100, 0, 0, 0}))

	big := registry.EntityID{High: math.MaxUint64, Low: math.MaxUint64 - 1}
	require.NoError(t, reg.CreateEntityWithID(big))
	require.NoError(t, reg.AddComponent(big, health, []byte{1, 0, 0, 0}))

	reg.CreateEntity()
	return reg
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	original := sampleRegistry(t)

	require.NoError(t, s.Save(ctx, original))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, original.Stats(), loaded.Stats())
	assert.Equal(t, original.Entities(), loaded.Entities())
	assert.Equal(t, original.Components(), loaded.Components())

	for _, def := range original.Components() {
		for _, id := range original.Entities() {
			want, wantOK := original.Component(id, def.Type)
			got, gotOK := loaded.Component(id, def.Type)
			assert.Equal(t, wantOK, gotOK, "%s on %s", def.Name, id)
			assert.Equal(t, want, got)
		}
	}
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleRegistry(t)))

	small := registry.NewMemory(registry.Options{})
	_, err := small.RegisterComponent("Tag", 1)
	require.NoError(t, err)
	small.CreateEntity()
	require.NoError(t, s.Save(ctx, small))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Stats().Entities)
	assert.Equal(t, 1, loaded.Stats().Components)
}

func TestSQLiteStore_LoadEmpty(t *testing.T) {
	s := newTestStore(t)

	reg, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, registry.Stats{}, reg.Stats())
}

func TestSQLiteStore_SaveNil(t *testing.T) {
	s := newTestStore(t)

	err := s.Save(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))
}

func TestSQLiteStore_Statistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["entities"])
	assert.NotContains(t, stats, "saved_at")

	require.NoError(t, s.Save(ctx, sampleRegistry(t)))

	stats, err = s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats["components"])
	assert.Equal(t, 3, stats["entities"])
	assert.Equal(t, 3, stats["entity_components"])
	assert.Contains(t, stats, "saved_at")
}

func TestSQLiteStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Save(ctx, sampleRegistry(t))
	require.Error(t, err)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeDatabaseError))
}

func TestDefaultConfig(t *testing.T) {
	assert.Equal(t, "./data/world.db", DefaultConfig().Path)
}
