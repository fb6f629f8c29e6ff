// Package query compiles flat request parameters into a structured, bounded
// query plan: field filters with operator suffixes, sorting, pagination and
// relation directives.
package query

// Operator is the comparison a FilterSpec applies.
type Operator string

const (
	OpEq        Operator = "eq"
	OpLike      Operator = "like"
	OpNotEq     Operator = "notEq"
	OpGt        Operator = "gt"
	OpLt        Operator = "lt"
	OpGte       Operator = "gte"
	OpLte       Operator = "lte"
	OpIn        Operator = "in"
	OpNotIn     Operator = "notIn"
	OpIsNull    Operator = "isNull"
	OpIsNotNull Operator = "isNotNull"
)

// FilterSpec is one compiled field filter.
//
// Value holds the transformed operand: the exact string for eq/notEq, the
// wildcard-wrapped string for like, an int64/float64/time.Time/string for range
// operators, nil for the null checks. Values holds the split list for in/notIn.
type FilterSpec struct {
	Field    string
	Operator Operator
	RawValue string
	Value    any
	Values   []string
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type SortSpec struct {
	Field     string
	Direction Direction
}

// Pagination is always populated by the compiler; Limit is clamped to the configured maximum.
type Pagination struct {
	Limit uint64
	Page  uint64
}

func (p Pagination) Offset() uint64 {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// RelationDirective lists declared relations to count or to contain, in request order.
type RelationDirective struct {
	Count   []string
	Contain []string
}

func (d RelationDirective) Empty() bool {
	return len(d.Count) == 0 && len(d.Contain) == 0
}

// Plan is the compiled query. Filters are AND-combined; an empty Sort means
// the store default ordering.
type Plan struct {
	Filters    []FilterSpec
	Sort       []SortSpec
	Pagination Pagination
	Relations  RelationDirective
}
