package artifact

import (
	"strings"

	"YcrudAPI/internal/model"
)

// BaseResource is the generic serializer. Internal callers see every visible
// column; public callers get the public id as "id" and no internal keys.
type BaseResource struct {
	entity *model.Entity
}

func NewBaseResource(e *model.Entity) *BaseResource {
	return &BaseResource{entity: e}
}

func (s *BaseResource) Serialize(cc CallContext, rec model.Record) (map[string]any, error) {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if s.entity.IsHidden(k) {
			continue
		}
		if !cc.Internal && s.isInternalKey(k) {
			continue
		}
		out[k] = v
	}
	if !cc.Internal {
		publicCol := s.entity.PublicIDColumn()
		if pid, ok := rec[publicCol]; ok {
			out["id"] = pid
			delete(out, publicCol)
		}
	}
	return out, nil
}

func (s *BaseResource) isInternalKey(k string) bool {
	if k == s.entity.KeyColumn() {
		return true
	}
	if s.entity.UUIDColumn != "" && k == s.entity.UUIDColumn {
		return true
	}
	if s.entity.TenantColumn != "" && k == s.entity.TenantColumn {
		return true
	}
	return k == "uuid" || strings.HasSuffix(k, "_uuid")
}

// FieldResource emits a declared field list in declaration order.
type FieldResource struct {
	fields []model.ResourceField
}

func NewFieldResource(fields []model.ResourceField) *FieldResource {
	return &FieldResource{fields: fields}
}

func (s *FieldResource) Serialize(_ CallContext, rec model.Record) (map[string]any, error) {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		out[f.Key()] = rec.Get(f.Source)
	}
	return out, nil
}
