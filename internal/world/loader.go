// ============================================================================
// ecsq - Entity Component Query
// ============================================================================
//
// Package:     world
// Description: Loads YAML world fixtures into registries and exports them
// Author:      Mike Stoffels
// Created:     2026-03-15
// License:     MIT
// ============================================================================

package world

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	mdwerror "github.com/msto63/ecsq/foundation/core/error"
	"github.com/msto63/ecsq/foundation/query/registry"
	"github.com/msto63/ecsq/pkg/core/logging"
	"gopkg.in/yaml.v3"
)

// Options configures loading and generation
type Options struct {
	Logger *logging.Logger
}

func (o Options) logger() *logging.Logger {
	if o.Logger == nil {
		return logging.New("world")
	}
	return o.Logger
}

// Parse decodes and validates a YAML fixture
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ReadFile reads and parses a fixture file
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Load reads a fixture file and builds a registry from it
func Load(path string, opts Options) (*registry.Memory, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, mdwerror.Wrap(err, "load world "+filepath.Base(path)).
			WithCode(mdwerror.CodeInvalidFormat).
			WithDetail("path", path)
	}

	reg, err := f.Build(opts)
	if err != nil {
		return nil, err
	}

	stats := reg.Stats()
	opts.logger().Info("World loaded",
		"file", filepath.Base(path),
		"entities", stats.Entities,
		"components", stats.Components,
	)
	return reg, nil
}

// Build creates a registry holding the fixture's components and entities
func (f *File) Build(opts Options) (*registry.Memory, error) {
	if err := f.Validate(); err != nil {
		return nil, invalid(err)
	}

	reg := registry.NewMemory(registry.Options{Logger: opts.logger().Logger})

	sizes := make(map[string]int, len(f.Components))
	types := make(map[string]registry.ComponentType, len(f.Components))
	for _, c := range f.Components {
		t, err := reg.RegisterComponent(c.Name, c.Size)
		if err != nil {
			return nil, invalid(err)
		}
		types[c.Name] = t
		sizes[c.Name] = c.Size
	}

	for i, e := range f.Entities {
		id, err := f.createEntity(reg, e)
		if err != nil {
			return nil, invalid(fmt.Errorf("entity #%d: %w", i, err))
		}

		names := make([]string, 0, len(e.Components))
		for name := range e.Components {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			data, err := e.Components[name].Bytes()
			if err != nil {
				return nil, invalid(fmt.Errorf("entity %s component %s: %w", id, name, err))
			}
			if len(data) != sizes[name] {
				return nil, invalid(fmt.Errorf("%w: entity %s component %s has %d bytes, declared %d",
					ErrSizeMismatch, id, name, len(data), sizes[name]))
			}
			if err := reg.AddComponent(id, types[name], data); err != nil {
				return nil, invalid(err)
			}
		}
	}

	return reg, nil
}

func (f *File) createEntity(reg *registry.Memory, e EntitySpec) (registry.EntityID, error) {
	if e.ID == "" {
		return reg.CreateEntity(), nil
	}
	id, err := registry.ParseEntityID(e.ID)
	if err != nil {
		return registry.EntityID{}, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if err := reg.CreateEntityWithID(id); err != nil {
		return registry.EntityID{}, err
	}
	return id, nil
}

func invalid(err error) error {
	return mdwerror.Wrap(err, "invalid world fixture").WithCode(mdwerror.CodeInvalidFormat)
}

// Export converts a registry into a fixture. Component data is written as
// hex and every entity carries its explicit id.
func Export(reg *registry.Memory) *File {
	defs := reg.Components()

	f := &File{Components: make([]ComponentSpec, 0, len(defs))}
	for _, def := range defs {
		f.Components = append(f.Components, ComponentSpec{Name: def.Name, Size: def.Size})
	}

	for _, id := range reg.Entities() {
		spec := EntitySpec{ID: id.String()}
		for _, def := range defs {
			data, ok := reg.Component(id, def.Type)
			if !ok {
				continue
			}
			if spec.Components == nil {
				spec.Components = make(map[string]Value)
			}
			spec.Components[def.Name] = HexValue(data)
		}
		f.Entities = append(f.Entities, spec)
	}
	return f
}

// Marshal encodes the fixture as YAML
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Save writes the registry to path as a YAML fixture
func Save(path string, reg *registry.Memory) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := Export(reg).Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode world: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write world: %w", err)
	}
	return nil
}
