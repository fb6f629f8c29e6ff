package store

import (
	"fmt"

	"YcrudAPI/internal/model"
	"YcrudAPI/internal/query"

	"github.com/Masterminds/squirrel"
)

const mainAlias = "main"

func col(name string) string {
	return mainAlias + "." + name
}

// buildSelect строит SELECT для list/search
func (s *SQLStore) buildSelect(e *model.Entity, q Query) squirrel.SelectBuilder {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(s.dialect.Placeholder)
	sb = sb.From(fmt.Sprintf("%s AS %s", e.Table, mainAlias))
	sb = sb.Columns(s.selectColumns(e, q.Plan.Relations.Count)...)

	if where := s.whereClause(e, q); where != nil {
		sb = sb.Where(where)
	}

	if len(q.Plan.Sort) == 0 {
		sb = sb.OrderBy(col(e.KeyColumn()) + " ASC")
	}
	for _, srt := range q.Plan.Sort {
		dir := "ASC"
		if srt.Direction == query.Desc {
			dir = "DESC"
		}
		sb = sb.OrderBy(fmt.Sprintf("%s %s", col(srt.Field), dir))
	}

	if p := q.Plan.Pagination; p.Limit > 0 {
		sb = sb.Limit(p.Limit).Offset(p.Offset())
	}
	return sb
}

func (s *SQLStore) buildCount(e *model.Entity, q Query) squirrel.SelectBuilder {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(s.dialect.Placeholder)
	sb = sb.From(fmt.Sprintf("%s AS %s", e.Table, mainAlias))
	sb = sb.Column("COUNT(*)")
	if where := s.whereClause(e, q); where != nil {
		sb = sb.Where(where)
	}
	return sb
}

func (s *SQLStore) buildFind(e *model.Entity, publicID string, q Query) squirrel.SelectBuilder {
	sb := squirrel.SelectBuilder{}.PlaceholderFormat(s.dialect.Placeholder)
	sb = sb.From(fmt.Sprintf("%s AS %s", e.Table, mainAlias))
	sb = sb.Columns(s.selectColumns(e, q.Plan.Relations.Count)...)

	exprs := squirrel.And{squirrel.Eq{col(e.PublicIDColumn()): publicID}}
	exprs = append(exprs, scopeClauses(e, q.Tenant)...)
	return sb.Where(exprs).Limit(1)
}

func (s *SQLStore) selectColumns(e *model.Entity, counts []string) []string {
	cols := []string{mainAlias + ".*"}
	for _, name := range counts {
		if expr, ok := relationCountColumn(e, name); ok {
			cols = append(cols, expr)
		}
	}
	return cols
}

// scopeClauses are applied to every read: soft delete and tenant.
func scopeClauses(e *model.Entity, tenant string) []squirrel.Sqlizer {
	var exprs []squirrel.Sqlizer
	if e.SoftDelete {
		exprs = append(exprs, squirrel.Eq{col("deleted_at"): nil})
	}
	if e.TenantColumn != "" && tenant != "" {
		exprs = append(exprs, squirrel.Eq{col(e.TenantColumn): tenant})
	}
	return exprs
}

func (s *SQLStore) whereClause(e *model.Entity, q Query) squirrel.Sqlizer {
	var exprs squirrel.And

	// 1. Фильтры плана
	for _, f := range q.Plan.Filters {
		if cond := s.filterCondition(f); cond != nil {
			exprs = append(exprs, cond)
		}
	}

	// 2. Предикаты артефакта фильтра
	exprs = append(exprs, q.Predicates...)

	// 3. Поиск по ключевому слову
	if q.Keyword != "" && len(e.Searchable) > 0 {
		var or squirrel.Or
		for _, c := range e.Searchable {
			or = append(or, s.dialect.like(col(c), "%"+q.Keyword+"%"))
		}
		exprs = append(exprs, or)
	}

	// 4. Soft delete и tenant
	exprs = append(exprs, scopeClauses(e, q.Tenant)...)

	if len(exprs) == 0 {
		return nil
	}
	return exprs
}

func (s *SQLStore) filterCondition(f query.FilterSpec) squirrel.Sqlizer {
	field := col(f.Field)
	switch f.Operator {
	case query.OpEq:
		return squirrel.Eq{field: f.Value}
	case query.OpNotEq:
		return squirrel.NotEq{field: f.Value}
	case query.OpLike:
		return s.dialect.like(field, f.Value)
	case query.OpGt:
		return squirrel.Gt{field: f.Value}
	case query.OpLt:
		return squirrel.Lt{field: f.Value}
	case query.OpGte:
		return squirrel.GtOrEq{field: f.Value}
	case query.OpLte:
		return squirrel.LtOrEq{field: f.Value}
	case query.OpIn:
		return squirrel.Eq{field: f.Values}
	case query.OpNotIn:
		return squirrel.NotEq{field: f.Values}
	case query.OpIsNull:
		return squirrel.Eq{field: nil}
	case query.OpIsNotNull:
		return squirrel.NotEq{field: nil}
	}
	return nil
}
