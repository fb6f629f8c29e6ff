package crud

import (
	"YcrudAPI/internal/artifact"
	"YcrudAPI/internal/model"
	"YcrudAPI/internal/resolver"
)

// serialize runs the resolved serializer on the record columns, then appends
// contained relations (serialized through the related entity's binding) and
// relation counts.
func (s *Service) serialize(rc RequestContext, e *model.Entity, ser artifact.Serializer, rec model.Record) (map[string]any, error) {
	base := rec.Clone()
	contained := map[string]any{}
	counts := map[string]any{}
	for name := range e.Relations {
		if v, ok := base[name]; ok {
			contained[name] = v
			delete(base, name)
		}
		if v, ok := base[name+"_count"]; ok {
			counts[name+"_count"] = v
			delete(base, name+"_count")
		}
	}

	out, err := ser.Serialize(rc.CallContext(), base)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}

	for name, v := range contained {
		nested, err := s.serializeRelated(rc, e.GetRelation(name), v)
		if err != nil {
			return nil, err
		}
		out[name] = nested
	}
	for k, v := range counts {
		out[k] = v
	}
	return out, nil
}

func (s *Service) serializeRelated(rc RequestContext, rel *model.Relation, value any) (any, error) {
	var (
		target *model.Entity
		ser    artifact.Serializer
	)
	if rel != nil {
		target = rel.GetModelRef()
	}
	if target != nil {
		b, err := s.resolver.Resolve(resolver.Request{Entity: target.Name, Version: rc.Version, Internal: rc.Internal})
		if err != nil {
			return nil, err
		}
		ser = b.Serializer
	}

	one := func(r model.Record) (map[string]any, error) {
		if ser == nil {
			return map[string]any(r.Clone()), nil
		}
		return ser.Serialize(rc.CallContext(), r)
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case model.Record:
		return one(v)
	case []model.Record:
		out := make([]map[string]any, 0, len(v))
		for _, r := range v {
			item, err := one(r)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}
	return value, nil
}
