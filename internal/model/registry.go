package model

import (
	"errors"
	"fmt"
	"sort"

	"YcrudAPI/internal/apperr"
)

var ErrRegistryFrozen = errors.New("registry is frozen")

// Registry maps entity type names to descriptors. It is written during boot and
// frozen before request traffic starts, so reads need no locking.
type Registry struct {
	entities   map[string]*Entity
	byResource map[string]*Entity
	frozen     bool
}

func NewRegistry() *Registry {
	return &Registry{
		entities:   make(map[string]*Entity),
		byResource: make(map[string]*Entity),
	}
}

// InitRegistry loads every descriptor from dir, links relations, validates and freezes.
func InitRegistry(dir string) (*Registry, error) {
	reg := NewRegistry()
	if err := reg.LoadEntitiesFromDir(dir); err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	if err := reg.Link(); err != nil {
		return nil, fmt.Errorf("link error: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	reg.Freeze()
	return reg, nil
}

func (r *Registry) Register(name string, e *Entity) error {
	if r.frozen {
		return ErrRegistryFrozen
	}
	if name == "" {
		return errors.New("entity type name is required")
	}
	if e == nil {
		return fmt.Errorf("entity %s: descriptor is nil", name)
	}
	if _, exists := r.entities[name]; exists {
		return fmt.Errorf("entity %s is already registered", name)
	}
	e.Name = name
	e.indexFields()
	resource := e.PluralName()
	if other, taken := r.byResource[resource]; taken {
		return fmt.Errorf("entity %s: resource name %q already used by %s", name, resource, other.Name)
	}
	r.entities[name] = e
	r.byResource[resource] = e
	return nil
}

// Describe returns the descriptor for an exact type name.
func (r *Registry) Describe(name string) (*Entity, error) {
	if e, ok := r.entities[name]; ok {
		return e, nil
	}
	return nil, apperr.UnknownEntityTypeError{Type: name}
}

// ByResource looks an entity up by its plural resource name (the URL segment).
func (r *Registry) ByResource(resource string) (*Entity, error) {
	if e, ok := r.byResource[resource]; ok {
		return e, nil
	}
	return nil, apperr.UnknownEntityTypeError{Type: resource}
}

// Entities lists the registered descriptors ordered by name.
func (r *Registry) Entities() []*Entity {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Entity, 0, len(names))
	for _, name := range names {
		out = append(out, r.entities[name])
	}
	return out
}

func (r *Registry) Freeze() {
	r.frozen = true
}

func (r *Registry) Frozen() bool {
	return r.frozen
}
