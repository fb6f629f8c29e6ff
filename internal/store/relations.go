package store

import (
	"context"
	"fmt"

	"YcrudAPI/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/spf13/cast"
)

// relationCountColumn returns the correlated sub-select producing "<rel>_count".
func relationCountColumn(e *model.Entity, name string) (string, bool) {
	rel := e.GetRelation(name)
	if rel == nil || rel.Table == "" {
		return "", false
	}
	var on string
	if rel.IsBelongsTo() {
		on = fmt.Sprintf("rc.%s = %s", rel.PK, col(rel.FK))
	} else {
		on = fmt.Sprintf("rc.%s = %s", rel.FK, col(rel.PK))
	}
	if target := rel.GetModelRef(); target != nil && target.SoftDelete {
		on += " AND rc.deleted_at IS NULL"
	}
	return fmt.Sprintf("(SELECT COUNT(*) FROM %s AS rc WHERE %s) AS %s_count", rel.Table, on, name), true
}

// attachContained loads each contained relation with one IN query and groups
// the rows onto their parents: has_many gets a slice, has_one and belongs_to a
// single record or nil.
func (s *SQLStore) attachContained(ctx context.Context, r runner, e *model.Entity, records []model.Record, names []string) error {
	if len(records) == 0 {
		return nil
	}
	for _, name := range names {
		rel := e.GetRelation(name)
		if rel == nil || rel.Table == "" {
			continue
		}
		if err := s.attachRelation(ctx, r, name, rel, records); err != nil {
			return fmt.Errorf("contain %s: %w", name, err)
		}
	}
	return nil
}

func (s *SQLStore) attachRelation(ctx context.Context, r runner, name string, rel *model.Relation, records []model.Record) error {
	// parentCol on the parent row, childCol on the related row
	parentCol, childCol := rel.PK, rel.FK
	if rel.IsBelongsTo() {
		parentCol, childCol = rel.FK, rel.PK
	}

	keys := distinctValues(records, parentCol)
	grouped := map[string][]model.Record{}
	if len(keys) > 0 {
		sb := squirrel.Select("*").From(rel.Table).
			PlaceholderFormat(s.dialect.Placeholder).
			Where(squirrel.Eq{childCol: keys})
		if target := rel.GetModelRef(); target != nil && target.SoftDelete {
			sb = sb.Where(squirrel.Eq{"deleted_at": nil})
		}
		if rel.Order != "" {
			sb = sb.OrderBy(rel.Order)
		}
		sqlStr, args, err := sb.ToSql()
		if err != nil {
			return err
		}
		rows, err := s.queryRecords(ctx, r, sqlStr, args)
		if err != nil {
			return err
		}
		for _, row := range rows {
			k := cast.ToString(row[childCol])
			grouped[k] = append(grouped[k], row)
		}
	}

	for _, rec := range records {
		children := grouped[cast.ToString(rec[parentCol])]
		if rec[parentCol] == nil {
			children = nil
		}
		switch rel.Type {
		case "has_many":
			if children == nil {
				children = []model.Record{}
			}
			rec[name] = children
		default:
			if len(children) > 0 {
				rec[name] = children[0]
			} else {
				rec[name] = nil
			}
		}
	}
	return nil
}

func distinctValues(records []model.Record, column string) []any {
	seen := map[string]bool{}
	var out []any
	for _, rec := range records {
		v := rec[column]
		if v == nil {
			continue
		}
		k := cast.ToString(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
