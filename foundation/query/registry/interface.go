// File: interface.go
// Title: Entity Component Registry Interface
// Description: The capabilities the query executor consumes from an entity
//              component store: name resolution, existence checks, component
//              bytes, attached-type enumeration and the three set queries.
//              The registry-side result type EntitySet lives here and is
//              deliberately distinct from the executor's Result.
// Author: msto63
// Version: v0.1.1
// Created: 2026-03-04
// Modified: 2026-10-19
//
// Change History:
// - 2026-03-04 v0.1.0: Initial interface
// - 2026-10-19 v0.1.1: Pool set buffers instead of sets, IsNil

package registry

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
)

// ComponentType is the registry-internal handle of a registered component
type ComponentType uint32

// EntityID is a 128-bit entity identifier
type EntityID struct {
	High uint64 `json:"high" yaml:"high"`
	Low  uint64 `json:"low" yaml:"low"`
}

// String renders the identifier as "high:low"
func (id EntityID) String() string {
	return strconv.FormatUint(id.High, 10) + ":" + strconv.FormatUint(id.Low, 10)
}

// IsZero reports whether both halves are zero
func (id EntityID) IsZero() bool {
	return id.High == 0 && id.Low == 0
}

// ParseEntityID parses the "high:low" form
func ParseEntityID(s string) (EntityID, error) {
	high, low, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return EntityID{}, fmt.Errorf("entity id %q: missing ':'", s)
	}
	h, err := strconv.ParseUint(high, 10, 64)
	if err != nil {
		return EntityID{}, fmt.Errorf("entity id %q: high part: %w", s, err)
	}
	l, err := strconv.ParseUint(low, 10, 64)
	if err != nil {
		return EntityID{}, fmt.Errorf("entity id %q: low part: %w", s, err)
	}
	return EntityID{High: h, Low: l}, nil
}

// Registry is the entity component store consumed by the executor
type Registry interface {
	// ComponentType resolves a component name
	ComponentType(name string) (ComponentType, bool)

	// ComponentSize returns the declared byte size of a component type
	ComponentSize(t ComponentType) (int, bool)

	// EntityExists reports whether id is a live entity
	EntityExists(id EntityID) bool

	// Component returns the bytes of component t on entity id. The slice is
	// owned by the registry and must not be retained or modified.
	Component(id EntityID, t ComponentType) ([]byte, bool)

	// ComponentTypes returns up to max component types attached to id
	ComponentTypes(id EntityID, max int) []ComponentType

	// QueryAll returns entities having every type in types
	QueryAll(types []ComponentType) (*EntitySet, error)

	// QueryAny returns entities having at least one type in types
	QueryAny(types []ComponentType) (*EntitySet, error)

	// QueryNone returns entities having none of the types in types
	QueryNone(types []ComponentType) (*EntitySet, error)
}

// IsNil reports whether reg is nil or a nil pointer of any implementation
func IsNil(reg Registry) bool {
	if reg == nil {
		return true
	}
	v := reflect.ValueOf(reg)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// EntitySet is the registry-owned result of a set query. The caller copies
// what it needs and calls Release; the set must not be used afterwards.
type EntitySet struct {
	entities []EntityID
	buf      *[]EntityID
}

// bufPool holds entity buffers. Sets themselves are never pooled, so a
// stale handle cannot alias a set handed out later.
var bufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]EntityID, 0, 64)
		return &buf
	},
}

// NewEntitySet creates an empty set backed by a pooled buffer
func NewEntitySet() *EntitySet {
	buf := bufPool.Get().(*[]EntityID)
	return &EntitySet{entities: (*buf)[:0], buf: buf}
}

// Add appends an entity to the set
func (s *EntitySet) Add(id EntityID) {
	s.entities = append(s.entities, id)
}

// Count returns the number of entities in the set
func (s *EntitySet) Count() int {
	if s == nil {
		return 0
	}
	return len(s.entities)
}

// Entities returns the registry-owned backing slice; copy before Release
func (s *EntitySet) Entities() []EntityID {
	if s == nil {
		return nil
	}
	return s.entities
}

// CopyEntities returns a caller-owned copy of the set
func (s *EntitySet) CopyEntities() []EntityID {
	if s == nil || len(s.entities) == 0 {
		return []EntityID{}
	}
	out := make([]EntityID, len(s.entities))
	copy(out, s.entities)
	return out
}

// Release returns the set's buffer to the pool and empties the set.
// Releasing twice is a no-op.
func (s *EntitySet) Release() {
	if s == nil || s.buf == nil {
		return
	}
	buf := s.buf
	s.buf = nil
	if cap(s.entities) <= 4096 {
		*buf = s.entities[:0]
		bufPool.Put(buf)
	}
	s.entities = nil
}
