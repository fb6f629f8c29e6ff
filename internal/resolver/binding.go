// Package resolver decides which serializer, validator and filter handle an
// entity for a given API version and caller scope.
package resolver

import (
	"fmt"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/artifact"
	"YcrudAPI/internal/logger"
	"YcrudAPI/internal/model"
)

// Request is one resolution request. Version 0 means version 1.
type Request struct {
	Entity   string
	Version  int
	Internal bool
}

// Binding is the resolved artifact triple. Serializer and Validator are always
// set; Filter is nil when the entity has no filter artifact.
type Binding struct {
	SerializerRef string
	ValidatorRef  string
	FilterRef     string

	Serializer artifact.Serializer
	Validator  artifact.Validator
	Filter     artifact.Filter
}

// Resolver is a pure function of the request and the boot-time registry and
// catalog contents. Warm fills the cache before traffic starts; after that the
// cache is only read.
type Resolver struct {
	registry *model.Registry
	catalog  *artifact.Catalog
	cache    map[Request]Binding
	warmed   bool
}

func New(registry *model.Registry, catalog *artifact.Catalog) *Resolver {
	return &Resolver{
		registry: registry,
		catalog:  catalog,
		cache:    make(map[Request]Binding),
	}
}

func normalize(req Request) Request {
	if req.Version < 1 {
		req.Version = 1
	}
	return req
}

// Resolve returns the binding for req, from the cache when it was warmed.
func (r *Resolver) Resolve(req Request) (Binding, error) {
	req = normalize(req)
	if r.warmed {
		if b, ok := r.cache[req]; ok {
			return b, nil
		}
	}
	return r.resolve(req)
}

// Warm resolves every (entity, version, scope) triple and freezes the cache.
// A construction failure aborts boot.
func (r *Resolver) Warm(versions []int) error {
	if r.warmed {
		return fmt.Errorf("resolver cache already warmed")
	}
	for _, e := range r.registry.Entities() {
		for _, v := range versions {
			for _, internal := range []bool{false, true} {
				req := normalize(Request{Entity: e.Name, Version: v, Internal: internal})
				b, err := r.resolve(req)
				if err != nil {
					return err
				}
				r.cache[req] = b
				logger.Debug("binding_resolved", map[string]any{
					"entity":     req.Entity,
					"version":    req.Version,
					"internal":   req.Internal,
					"serializer": b.SerializerRef,
					"validator":  b.ValidatorRef,
					"filter":     b.FilterRef,
				})
			}
		}
	}
	r.warmed = true
	logger.Info("bindings_warmed", map[string]any{"bindings": len(r.cache)})
	return nil
}

func (r *Resolver) resolve(req Request) (Binding, error) {
	e, err := r.registry.Describe(req.Entity)
	if err != nil {
		return Binding{}, err
	}

	var b Binding
	if ref, ok := r.lookup(artifact.KindSerializer, e, req); ok {
		obj, err := r.build(artifact.KindSerializer, ref, e)
		if err != nil {
			return Binding{}, err
		}
		b.SerializerRef, b.Serializer = ref, obj.(artifact.Serializer)
	}
	if ref, ok := r.lookup(artifact.KindValidator, e, req); ok {
		obj, err := r.build(artifact.KindValidator, ref, e)
		if err != nil {
			return Binding{}, err
		}
		b.ValidatorRef, b.Validator = ref, obj.(artifact.Validator)
	}
	if ref, ok := r.lookup(artifact.KindFilter, e, req); ok {
		obj, err := r.build(artifact.KindFilter, ref, e)
		if err != nil {
			return Binding{}, err
		}
		b.FilterRef, b.Filter = ref, obj.(artifact.Filter)
	}
	return b, nil
}

// lookup walks the fallback chain for one artifact kind:
// explicit override, scoped convention, public convention, generic default.
// ok is false only for filters without any candidate.
func (r *Resolver) lookup(kind artifact.Kind, e *model.Entity, req Request) (string, bool) {
	if override := overrideRef(kind, e); override != "" {
		return override, true
	}
	ref := artifact.Ref(kind, req.Internal, req.Version, e.Name)
	if r.catalog.Has(kind, ref) {
		return ref, true
	}
	if req.Internal {
		if public := artifact.StripInternal(ref); r.catalog.Has(kind, public) {
			return public, true
		}
	}
	if def := kind.DefaultRef(); def != "" {
		return def, true
	}
	return "", false
}

func (r *Resolver) build(kind artifact.Kind, ref string, e *model.Entity) (any, error) {
	obj, err := r.catalog.Build(kind, ref, e)
	if err != nil {
		return nil, apperr.ArtifactConstructionError{Ref: ref, Err: err}
	}
	return obj, nil
}

func overrideRef(kind artifact.Kind, e *model.Entity) string {
	switch kind {
	case artifact.KindSerializer:
		return e.Serializer
	case artifact.KindValidator:
		return e.Validator
	case artifact.KindFilter:
		return e.Filter
	}
	return ""
}
