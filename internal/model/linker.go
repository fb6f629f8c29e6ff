package model

import (
	"fmt"
	"unicode"
)

// Link resolves relation targets and fills default keys.
func (r *Registry) Link() error {
	for _, entity := range r.Entities() {
		for relName, rel := range entity.Relations {
			if rel == nil {
				return fmt.Errorf("relation '%s.%s' is empty", entity.Name, relName)
			}
			if rel.Model != "" {
				target, ok := r.entities[rel.Model]
				if !ok {
					return fmt.Errorf("invalid relation: entity '%s' not found in '%s.%s'", rel.Model, entity.Name, relName)
				}
				rel._ModelRef = target
				if rel.Table == "" {
					rel.Table = target.Table
				}
			}
			if rel.Table == "" {
				return fmt.Errorf("relation '%s.%s' needs either model or table", entity.Name, relName)
			}

			switch rel.Type {
			case "belongs_to":
				// FK lives on this table and points at the related key
				if rel.FK == "" {
					rel.FK = relName + "_id"
				}
				if rel.PK == "" {
					if target := rel._ModelRef; target != nil {
						rel.PK = target.KeyColumn()
					} else {
						rel.PK = "id"
					}
				}
			case "has_one", "has_many":
				// FK lives on the related table and points back at this entity
				if rel.FK == "" {
					rel.FK = toSnakeCase(entity.Name) + "_id"
				}
				if rel.PK == "" {
					rel.PK = entity.KeyColumn()
				}
			default:
				return fmt.Errorf("relation '%s.%s' must have valid Type (has_many, has_one, belongs_to), got '%s'", entity.Name, relName, rel.Type)
			}
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}
