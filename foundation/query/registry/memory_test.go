package registry

import (
	"sync"
	"testing"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	mdwlog "github.com/msto63/ecsq/foundation/core/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(t *testing.T) (*Memory, ComponentType, ComponentType) {
	t.Helper()
	m := NewMemory(Options{Logger: mdwlog.NewNop()})
	pos, err := m.RegisterComponent("Position", 8)
	require.NoError(t, err)
	health, err := m.RegisterComponent("Health", 4)
	require.NoError(t, err)
	return m, pos, health
}

func ids(set *EntitySet) []EntityID {
	defer set.Release()
	return set.CopyEntities()
}

func TestMemory_RegisterComponent(t *testing.T) {
	m, pos, health := newTestMemory(t)

	assert.Equal(t, ComponentType(0), pos)
	assert.Equal(t, ComponentType(1), health)

	_, err := m.RegisterComponent("Position", 8)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeDuplicateEntry))

	_, err = m.RegisterComponent("", 8)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))

	_, err = m.RegisterComponent("Zero", 0)
	assert.Error(t, err)

	got, ok := m.ComponentType("Position")
	require.True(t, ok)
	assert.Equal(t, pos, got)

	_, ok = m.ComponentType("position")
	assert.False(t, ok, "names are case-sensitive")

	size, ok := m.ComponentSize(health)
	require.True(t, ok)
	assert.Equal(t, 4, size)

	name, ok := m.ComponentName(health)
	require.True(t, ok)
	assert.Equal(t, "Health", name)

	_, ok = m.ComponentSize(ComponentType(99))
	assert.False(t, ok)
	assert.Len(t, m.Components(), 2)
}

func TestMemory_Entities(t *testing.T) {
	m, pos, _ := newTestMemory(t)

	e1 := m.CreateEntity()
	e2 := m.CreateEntity()
	assert.Equal(t, EntityID{High: 0, Low: 1}, e1)
	assert.Equal(t, EntityID{High: 0, Low: 2}, e2)

	explicit := EntityID{High: 7, Low: 9}
	require.NoError(t, m.CreateEntityWithID(explicit))
	assert.True(t, mdwerror.HasCode(m.CreateEntityWithID(explicit), mdwerror.CodeDuplicateEntry))

	// sequential allocation skips identifiers that were claimed explicitly
	require.NoError(t, m.CreateEntityWithID(EntityID{Low: 3}))
	assert.Equal(t, EntityID{Low: 4}, m.CreateEntity())

	assert.True(t, m.EntityExists(e1))
	assert.Equal(t, []EntityID{e1, e2, explicit, {Low: 3}, {Low: 4}}, m.Entities())

	require.NoError(t, m.AddComponent(e1, pos, make([]byte, 8)))
	require.NoError(t, m.DestroyEntity(e1))
	assert.False(t, m.EntityExists(e1))
	_, ok := m.Component(e1, pos)
	assert.False(t, ok)
	assert.True(t, mdwerror.HasCode(m.DestroyEntity(e1), mdwerror.CodeNotFound))
}

func TestMemory_Components(t *testing.T) {
	m, pos, health := newTestMemory(t)
	e := m.CreateEntity()

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, m.AddComponent(e, pos, data))
	data[0] = 99 // registry keeps its own copy

	got, ok := m.Component(e, pos)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)

	err := m.AddComponent(e, health, []byte{1})
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeInvalidInput))

	err = m.AddComponent(EntityID{High: 5}, pos, make([]byte, 8))
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeNotFound))

	err = m.AddComponent(e, ComponentType(42), nil)
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeNotFound))

	require.NoError(t, m.AddComponent(e, health, make([]byte, 4)))
	assert.Equal(t, []ComponentType{pos, health}, m.ComponentTypes(e, 64))
	assert.Equal(t, []ComponentType{pos}, m.ComponentTypes(e, 1))
	assert.Nil(t, m.ComponentTypes(EntityID{High: 5}, 64))

	require.NoError(t, m.RemoveComponent(e, health))
	assert.Error(t, m.RemoveComponent(e, health))
	assert.Equal(t, []ComponentType{pos}, m.ComponentTypes(e, 64))

	stats := m.Stats()
	assert.Equal(t, Stats{Entities: 1, Components: 2, Attachments: 1, Bytes: 8}, stats)
}

func TestMemory_SetQueries(t *testing.T) {
	m, pos, health := newTestMemory(t)
	e1 := m.CreateEntity()
	e2 := m.CreateEntity()
	e3 := m.CreateEntity()
	require.NoError(t, m.AddComponent(e1, pos, make([]byte, 8)))
	require.NoError(t, m.AddComponent(e2, pos, make([]byte, 8)))
	require.NoError(t, m.AddComponent(e2, health, make([]byte, 4)))

	tests := []struct {
		name  string
		query func([]ComponentType) (*EntitySet, error)
		types []ComponentType
		want  []EntityID
	}{
		{"all position", m.QueryAll, []ComponentType{pos}, []EntityID{e1, e2}},
		{"all both", m.QueryAll, []ComponentType{pos, health}, []EntityID{e2}},
		{"all duplicate", m.QueryAll, []ComponentType{health, health}, []EntityID{e2}},
		{"any", m.QueryAny, []ComponentType{pos, health}, []EntityID{e1, e2}},
		{"any health", m.QueryAny, []ComponentType{health}, []EntityID{e2}},
		{"none health", m.QueryNone, []ComponentType{health}, []EntityID{e1, e3}},
		{"none both", m.QueryNone, []ComponentType{pos, health}, []EntityID{e3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := tt.query(tt.types)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), set.Count())
			assert.Equal(t, tt.want, ids(set))
		})
	}
}

func TestMemory_QueryUnknownType(t *testing.T) {
	m, _, _ := newTestMemory(t)
	_, err := m.QueryAll([]ComponentType{7})
	assert.True(t, mdwerror.HasCode(err, mdwerror.CodeDataCorruption))
}

func TestMemory_ConcurrentReaders(t *testing.T) {
	m, pos, _ := newTestMemory(t)
	for i := 0; i < 50; i++ {
		e := m.CreateEntity()
		require.NoError(t, m.AddComponent(e, pos, make([]byte, 8)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := m.QueryAll([]ComponentType{pos})
			if assert.NoError(t, err) {
				assert.Equal(t, 50, set.Count())
				set.Release()
			}
		}()
	}
	wg.Wait()
}

func TestEntitySet_Release(t *testing.T) {
	set := NewEntitySet()
	set.Add(EntityID{Low: 1})
	copied := set.CopyEntities()
	set.Release()
	set.Release()

	assert.Equal(t, []EntityID{{Low: 1}}, copied)

	var nilSet *EntitySet
	assert.Equal(t, 0, nilSet.Count())
	assert.Nil(t, nilSet.Entities())
	nilSet.Release()
}

func TestEntitySet_StaleReleaseDoesNotAlias(t *testing.T) {
	a := NewEntitySet()
	a.Release()
	assert.Equal(t, 0, a.Count())

	b := NewEntitySet()
	b.Add(EntityID{Low: 7})
	a.Release()

	c := NewEntitySet()
	c.Add(EntityID{Low: 9})

	assert.NotSame(t, a, b)
	assert.NotSame(t, b, c)
	assert.Equal(t, []EntityID{{Low: 7}}, b.Entities())
	assert.Equal(t, []EntityID{{Low: 9}}, c.Entities())
	assert.Nil(t, a.Entities())

	b.Release()
	b.Release()
	d := NewEntitySet()
	d.Add(EntityID{Low: 11})
	assert.Equal(t, []EntityID{{Low: 9}}, c.Entities())
	assert.Equal(t, []EntityID{{Low: 11}}, d.Entities())
}

type otherRegistry struct {
	*Memory
}

func TestIsNil(t *testing.T) {
	var nilMemory *Memory
	var nilOther *otherRegistry

	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(nilMemory))
	assert.True(t, IsNil(nilOther))
	assert.False(t, IsNil(NewMemory(Options{Logger: mdwlog.NewNop()})))
	assert.False(t, IsNil(otherRegistry{}))
}

func TestParseEntityID(t *testing.T) {
	id, err := ParseEntityID("12:34")
	require.NoError(t, err)
	assert.Equal(t, EntityID{High: 12, Low: 34}, id)
	assert.Equal(t, "12:34", id.String())
	assert.False(t, id.IsZero())

	for _, bad := range []string{"1234", "a:1", "1:b", "1:", ":1", "18446744073709551616:0"} {
		_, err := ParseEntityID(bad)
		assert.Error(t, err, bad)
	}
}
