// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     world
// Description: YAML world fixture definitions
// Author:      Mike Stoffels
// Created:     2026-03-15
// License:     MIT
// ============================================================================

package world

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
)

// File represents a world fixture loaded from YAML
type File struct {
	Components []ComponentSpec `yaml:"components"`
	Entities   []EntitySpec    `yaml:"entities"`
}

// ComponentSpec declares a component type
type ComponentSpec struct {
	Name string `yaml:"name"`
	Size int    `yaml:"size"`
}

// EntitySpec declares an entity and its attached components. ID is
// "high:low"; entities without one get the next sequential identifier.
type EntitySpec struct {
	ID         string           `yaml:"id,omitempty"`
	Components map[string]Value `yaml:"components,omitempty"`
}

// Value holds component data in exactly one encoding. Numeric encodings are
// written little-endian.
type Value struct {
	Hex     string    `yaml:"hex,omitempty"`
	Float32 []float32 `yaml:"float32,omitempty"`
	Int32   []int32   `yaml:"int32,omitempty"`
}

// HexValue wraps raw bytes as a hex-encoded value
func HexValue(data []byte) Value {
	return Value{Hex: hex.EncodeToString(data)}
}

// Float32Value builds a value from float32 fields
func Float32Value(fields ...float32) Value {
	return Value{Float32: fields}
}

// Int32Value builds a value from int32 fields
func Int32Value(fields ...int32) Value {
	return Value{Int32: fields}
}

// Bytes encodes the value
func (v Value) Bytes() ([]byte, error) {
	set := 0
	if v.Hex != "" {
		set++
	}
	if len(v.Float32) > 0 {
		set++
	}
	if len(v.Int32) > 0 {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of hex, float32, int32 is required", ErrInvalidValue)
	}

	switch {
	case v.Hex != "":
		data, err := hex.DecodeString(strings.TrimPrefix(strings.ReplaceAll(v.Hex, " ", ""), "0x"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return data, nil
	case len(v.Float32) > 0:
		data := make([]byte, 4*len(v.Float32))
		for i, f := range v.Float32 {
			binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(f))
		}
		return data, nil
	default:
		data := make([]byte, 4*len(v.Int32))
		for i, n := range v.Int32 {
			binary.LittleEndian.PutUint32(data[4*i:], uint32(n))
		}
		return data, nil
	}
}

// Validate checks the fixture for structural errors
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Components))
	for _, c := range f.Components {
		if c.Name == "" {
			return ErrMissingName
		}
		if c.Size <= 0 {
			return fmt.Errorf("%w: component %s has size %d", ErrInvalidSize, c.Name, c.Size)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateComponent, c.Name)
		}
		seen[c.Name] = true
	}

	for i, e := range f.Entities {
		for name := range e.Components {
			if !seen[name] {
				return fmt.Errorf("%w: entity #%d uses %s", ErrUnknownComponent, i, name)
			}
		}
	}
	return nil
}
