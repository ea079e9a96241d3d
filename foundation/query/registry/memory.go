// File: memory.go
// Title: In-Memory Entity Component Registry
// Description: Thread-safe Registry implementation backed by maps. Holds
//              component definitions, entities in creation order and the
//              raw component bytes per entity. Used by the CLI, shell,
//              servers and tests; snapshots are persisted by internal/store.
// Author: msto63
// Version: v0.2.0
// Created: 2026-03-04
// Modified: 2026-03-12
//
// Change History:
// - 2026-03-04 v0.1.0: Initial implementation
// - 2026-03-12 v0.2.0: Explicit IDs, component removal, statistics

package registry

import (
	"sort"
	"sync"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	mdwlog "github.com/msto63/ecsq/foundation/core/log"
)

// Options configures a Memory registry
type Options struct {
	Logger *mdwlog.Logger
}

// ComponentDef describes a registered component type
type ComponentDef struct {
	Type ComponentType `json:"type"`
	Name string        `json:"name"`
	Size int           `json:"size"`
}

// Stats summarizes the registry contents
type Stats struct {
	Entities    int `json:"entities"`
	Components  int `json:"components"`
	Attachments int `json:"attachments"`
	Bytes       int `json:"bytes"`
}

type entityRecord struct {
	id         EntityID
	components map[ComponentType][]byte
}

// Memory is an in-memory entity component store
type Memory struct {
	names    map[string]ComponentType
	defs     []ComponentDef
	entities map[EntityID]*entityRecord
	order    []EntityID
	nextLow  uint64
	logger   *mdwlog.Logger
	mutex    sync.RWMutex
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty registry
func NewMemory(opts Options) *Memory {
	if opts.Logger == nil {
		opts.Logger = mdwlog.GetDefault()
	}
	return &Memory{
		names:    make(map[string]ComponentType),
		entities: make(map[EntityID]*entityRecord),
		nextLow:  1,
		logger:   opts.Logger.WithField("component", "query-registry"),
	}
}

// RegisterComponent registers a component name with a fixed byte size.
// Handles are assigned sequentially from zero.
func (m *Memory) RegisterComponent(name string, size int) (ComponentType, error) {
	if name == "" {
		return 0, mdwerror.New("component name cannot be empty").WithCode(mdwerror.CodeInvalidInput)
	}
	if size <= 0 {
		return 0, mdwerror.Newf("component %s: size must be positive, got %d", name, size).
			WithCode(mdwerror.CodeInvalidInput)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.names[name]; exists {
		return 0, mdwerror.Newf("component %s already registered", name).
			WithCode(mdwerror.CodeDuplicateEntry).
			WithDetail("component", name)
	}

	t := ComponentType(len(m.defs))
	m.defs = append(m.defs, ComponentDef{Type: t, Name: name, Size: size})
	m.names[name] = t

	m.logger.Debug("Component registered", mdwlog.Fields{
		"name": name,
		"type": t,
		"size": size,
	})
	return t, nil
}

// CreateEntity creates an entity with the next sequential identifier
// (high 0, low counting from 1)
func (m *Memory) CreateEntity() EntityID {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for {
		id := EntityID{High: 0, Low: m.nextLow}
		m.nextLow++
		if _, taken := m.entities[id]; !taken {
			m.insertLocked(id)
			return id
		}
	}
}

// CreateEntityWithID creates an entity with a caller-chosen identifier
func (m *Memory) CreateEntityWithID(id EntityID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.entities[id]; exists {
		return mdwerror.Newf("entity %s already exists", id).
			WithCode(mdwerror.CodeDuplicateEntry).
			WithDetail("entity", id.String())
	}
	m.insertLocked(id)
	return nil
}

func (m *Memory) insertLocked(id EntityID) {
	m.entities[id] = &entityRecord{id: id, components: make(map[ComponentType][]byte)}
	m.order = append(m.order, id)
}

// DestroyEntity removes an entity and all of its components
func (m *Memory) DestroyEntity(id EntityID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.entities[id]; !exists {
		return m.missingEntity(id)
	}
	delete(m.entities, id)
	for i, other := range m.order {
		if other == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// AddComponent attaches (or replaces) component t on entity id. The data
// length must equal the registered size; the bytes are copied.
func (m *Memory) AddComponent(id EntityID, t ComponentType, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rec, exists := m.entities[id]
	if !exists {
		return m.missingEntity(id)
	}
	if int(t) >= len(m.defs) {
		return mdwerror.Newf("unknown component type %d", t).WithCode(mdwerror.CodeNotFound)
	}
	def := m.defs[t]
	if len(data) != def.Size {
		return mdwerror.Newf("component %s expects %d bytes, got %d", def.Name, def.Size, len(data)).
			WithCode(mdwerror.CodeInvalidInput).
			WithDetail("entity", id.String())
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	rec.components[t] = buf
	return nil
}

// RemoveComponent detaches component t from entity id
func (m *Memory) RemoveComponent(id EntityID, t ComponentType) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	rec, exists := m.entities[id]
	if !exists {
		return m.missingEntity(id)
	}
	if _, has := rec.components[t]; !has {
		return mdwerror.Newf("entity %s has no component %d", id, t).WithCode(mdwerror.CodeNotFound)
	}
	delete(rec.components, t)
	return nil
}

func (m *Memory) missingEntity(id EntityID) error {
	return mdwerror.Newf("entity %s does not exist", id).
		WithCode(mdwerror.CodeNotFound).
		WithDetail("entity", id.String())
}

// ComponentType resolves a component name (case-sensitive)
func (m *Memory) ComponentType(name string) (ComponentType, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	t, ok := m.names[name]
	return t, ok
}

// ComponentSize returns the declared size of t
func (m *Memory) ComponentSize(t ComponentType) (int, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if int(t) >= len(m.defs) {
		return 0, false
	}
	return m.defs[t].Size, true
}

// ComponentName returns the registered name of t
func (m *Memory) ComponentName(t ComponentType) (string, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if int(t) >= len(m.defs) {
		return "", false
	}
	return m.defs[t].Name, true
}

// Components lists the registered component definitions in handle order
func (m *Memory) Components() []ComponentDef {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]ComponentDef, len(m.defs))
	copy(out, m.defs)
	return out
}

// EntityExists reports whether id is a live entity
func (m *Memory) EntityExists(id EntityID) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.entities[id]
	return ok
}

// Entities returns all live entities in creation order
func (m *Memory) Entities() []EntityID {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]EntityID, len(m.order))
	copy(out, m.order)
	return out
}

// Component returns the stored bytes of t on id
func (m *Memory) Component(id EntityID, t ComponentType) ([]byte, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	rec, ok := m.entities[id]
	if !ok {
		return nil, false
	}
	data, ok := rec.components[t]
	return data, ok
}

// ComponentTypes returns up to max attached types of id in ascending order
func (m *Memory) ComponentTypes(id EntityID, max int) []ComponentType {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rec, ok := m.entities[id]
	if !ok || max <= 0 {
		return nil
	}
	types := make([]ComponentType, 0, len(rec.components))
	for t := range rec.components {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	if len(types) > max {
		types = types[:max]
	}
	return types
}

// QueryAll returns entities having every type in types
func (m *Memory) QueryAll(types []ComponentType) (*EntitySet, error) {
	return m.query(types, func(hits, total int) bool { return hits == total })
}

// QueryAny returns entities having at least one type in types
func (m *Memory) QueryAny(types []ComponentType) (*EntitySet, error) {
	return m.query(types, func(hits, _ int) bool { return hits > 0 })
}

// QueryNone returns entities having none of the types in types
func (m *Memory) QueryNone(types []ComponentType) (*EntitySet, error) {
	return m.query(types, func(hits, _ int) bool { return hits == 0 })
}

// query counts, per entity, how many of the distinct handles in types are
// attached and keeps the entity when match accepts the count
func (m *Memory) query(types []ComponentType, match func(hits, total int) bool) (*EntitySet, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	unique := make([]ComponentType, 0, len(types))
	seen := make(map[ComponentType]struct{}, len(types))
	for _, t := range types {
		if int(t) >= len(m.defs) {
			return nil, mdwerror.Newf("unknown component type %d", t).
				WithCode(mdwerror.CodeDataCorruption).
				WithOperation("registry.query")
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}

	set := NewEntitySet()
	for _, id := range m.order {
		rec := m.entities[id]
		hits := 0
		for _, t := range unique {
			if _, ok := rec.components[t]; ok {
				hits++
			}
		}
		if match(hits, len(unique)) {
			set.Add(id)
		}
	}
	return set, nil
}

// Stats returns a summary of the registry contents
func (m *Memory) Stats() Stats {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s := Stats{Entities: len(m.entities), Components: len(m.defs)}
	for _, rec := range m.entities {
		s.Attachments += len(rec.components)
		for _, data := range rec.components {
			s.Bytes += len(data)
		}
	}
	return s
}
