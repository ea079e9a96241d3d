// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     world
// Description: Synthetic world generation
// Author:      Mike Stoffels
// Created:     2026-03-16
// License:     MIT
// ============================================================================

package world

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/msto63/ecsq/foundation/query/registry"
)

// Generated component layout
const (
	PositionComponent = "Position" // two float32: x, y
	HealthComponent   = "Health"   // int32 hit points
	SpriteComponent   = "Sprite"   // int32 sprite index
)

// GenerateOptions configures Generate
type GenerateOptions struct {
	Options

	// RandomIDs assigns uuid-derived identifiers instead of sequential ones
	RandomIDs bool
}

// IDFromUUID splits a UUID into the high and low halves of an entity id
func IDFromUUID(u uuid.UUID) registry.EntityID {
	return registry.EntityID{
		High: binary.BigEndian.Uint64(u[:8]),
		Low:  binary.BigEndian.Uint64(u[8:]),
	}
}

// Generate builds a world of n entities. Every entity has Position, entities
// with an even index have Health and every third entity has Sprite.
func Generate(n int, opts GenerateOptions) (*registry.Memory, error) {
	if n < 0 {
		return nil, fmt.Errorf("entity count must not be negative, got %d", n)
	}

	f := &File{
		Components: []ComponentSpec{
			{Name: PositionComponent, Size: 8},
			{Name: HealthComponent, Size: 4},
			{Name: SpriteComponent, Size: 4},
		},
		Entities: make([]EntitySpec, 0, n),
	}

	for i := 0; i < n; i++ {
		spec := EntitySpec{Components: map[string]Value{
			PositionComponent: Float32Value(float32(i), float32(2*i)),
		}}
		if opts.RandomIDs {
			spec.ID = IDFromUUID(uuid.New()).String()
		}
		if i%2 == 0 {
			spec.Components[HealthComponent] = Int32Value(int32(100 - i%100))
		}
		if i%3 == 0 {
			spec.Components[SpriteComponent] = Int32Value(int32(i % 16))
		}
		f.Entities = append(f.Entities, spec)
	}

	reg, err := f.Build(opts.Options)
	if err != nil {
		return nil, err
	}

	opts.logger().Debug("World generated", "entities", n, "random_ids", opts.RandomIDs)
	return reg, nil
}
