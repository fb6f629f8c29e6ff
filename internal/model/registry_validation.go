package model

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// identifiers are interpolated into SQL, so they are restricted to plain column names
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is safe to use as a column or table name.
func IsIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// Validate checks every registered descriptor after linking.
func (r *Registry) Validate() error {
	for _, e := range r.Entities() {
		if err := validateEntity(e); err != nil {
			return err
		}
	}
	return nil
}

func validateEntity(e *Entity) error {
	if !IsIdentifier(e.Table) {
		return fmt.Errorf("entity %s: invalid table name %q", e.Name, e.Table)
	}

	columns := map[string][]string{
		"primary_key":   {e.KeyColumn()},
		"public_id":     {e.PublicIDColumn()},
		"timestamp":     {e.TimestampColumn()},
		"fillable":      e.Fillable,
		"filterable":    e.Filterable,
		"searchable":    e.Searchable,
		"hidden":        e.Hidden,
		"uuid":          optional(e.UUIDColumn),
		"tenant_column": optional(e.TenantColumn),
	}
	for _, key := range sortedKeys(columns) {
		for _, col := range columns[key] {
			if !IsIdentifier(col) {
				return fmt.Errorf("entity %s: invalid column %q in %s", e.Name, col, key)
			}
		}
	}

	for _, relName := range sortedKeys(e.Relations) {
		rel := e.Relations[relName]
		if !IsIdentifier(relName) {
			return fmt.Errorf("entity %s: invalid relation name %q", e.Name, relName)
		}
		for _, ident := range []string{rel.Table, rel.FK, rel.PK} {
			if !IsIdentifier(ident) {
				return fmt.Errorf("relation '%s.%s': invalid identifier %q", e.Name, relName, ident)
			}
		}
		if rel.Order != "" {
			if err := validateOrder(rel.Order); err != nil {
				return fmt.Errorf("relation '%s.%s': %w", e.Name, relName, err)
			}
		}
	}

	for kind, keys := range map[string][]string{
		"resources": sortedKeys(e.Resources),
		"requests":  sortedKeys(e.Requests),
		"filters":   sortedKeys(e.Filters),
	} {
		for _, key := range keys {
			if _, err := ParseScope(key); err != nil {
				return fmt.Errorf("entity %s: %s: %w", e.Name, kind, err)
			}
		}
	}
	return nil
}

// validateOrder accepts "col" or "col asc|desc".
func validateOrder(order string) error {
	parts := strings.Fields(order)
	if len(parts) == 0 || len(parts) > 2 || !IsIdentifier(parts[0]) {
		return fmt.Errorf("invalid order %q", order)
	}
	if len(parts) == 2 {
		switch strings.ToLower(parts[1]) {
		case "asc", "desc":
		default:
			return fmt.Errorf("invalid order direction %q", parts[1])
		}
	}
	return nil
}

func optional(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
