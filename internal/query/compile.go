package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/model"

	"github.com/spf13/cast"
)

// Control keys are consumed by the compiler and never treated as fields.
const (
	KeyLimit     = "limit"
	KeyPage      = "page"
	KeySort      = "sort"
	KeyCount     = "count"
	KeyWithCount = "with_count"
	KeyContain   = "contain"
	KeyWith      = "with"
	KeyExpand    = "expand"

	// InternalMarker prefixes keys set by first-party clients.
	InternalMarker = "_internal"

	SortLatest = "latest"
	SortOldest = "oldest"
)

var controlKeys = map[string]bool{
	KeyLimit:     true,
	KeyPage:      true,
	KeySort:      true,
	KeyCount:     true,
	KeyWithCount: true,
	KeyContain:   true,
	KeyWith:      true,
	KeyExpand:    true,
}

type suffixOp struct {
	suffix string
	op     Operator
}

// longest first, so "_notIn" is tried before "_in" and "_isNotNull" before "_not"
var suffixOps = func() []suffixOp {
	ops := []suffixOp{
		{"_like", OpLike},
		{"_not", OpNotEq},
		{"_gt", OpGt},
		{"_lt", OpLt},
		{"_gte", OpGte},
		{"_lte", OpLte},
		{"_in", OpIn},
		{"_notIn", OpNotIn},
		{"_isNull", OpIsNull},
		{"_isNotNull", OpIsNotNull},
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return len(ops[i].suffix) > len(ops[j].suffix)
	})
	return ops
}()

// Compiler turns request parameters into plans. It holds no per-request
// state and is safe for concurrent use.
type Compiler struct {
	DefaultLimit uint64
	MaxLimit     uint64
}

func NewCompiler(defaultLimit, maxLimit uint64) *Compiler {
	if defaultLimit == 0 {
		defaultLimit = 15
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &Compiler{DefaultLimit: defaultLimit, MaxLimit: maxLimit}
}

type options struct {
	reserved map[string]bool
}

type Option func(*options)

// WithReserved marks extra keys (search keyword, filter artifact params) as consumed.
func WithReserved(keys ...string) Option {
	return func(o *options) {
		for _, k := range keys {
			o.reserved[k] = true
		}
	}
}

// Compile builds the plan for entity e. Every failure is an apperr.InvalidFilterError
// naming the offending parameter.
func (c *Compiler) Compile(e *model.Entity, params url.Values, opts ...Option) (Plan, error) {
	o := options{reserved: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}

	var plan Plan

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		name := strings.TrimSuffix(key, "[]")
		if controlKeys[name] || o.reserved[name] || strings.HasPrefix(name, InternalMarker) {
			continue
		}
		spec, err := compileFilter(e, key, name, params[key])
		if err != nil {
			return Plan{}, err
		}
		plan.Filters = append(plan.Filters, spec)
	}

	sorts, err := parseSort(e, controlValues(params, KeySort))
	if err != nil {
		return Plan{}, err
	}
	plan.Sort = sorts

	pagination, err := c.parsePagination(params)
	if err != nil {
		return Plan{}, err
	}
	plan.Pagination = pagination

	plan.Relations = c.Relations(e, params)
	return plan, nil
}

// Relations extracts only the relation directives, for single-record reads.
func (c *Compiler) Relations(e *model.Entity, params url.Values) RelationDirective {
	return RelationDirective{
		Count:   relationNames(e, params, KeyCount, KeyWithCount),
		Contain: relationNames(e, params, KeyContain, KeyWith, KeyExpand),
	}
}

// decompose splits a key into field and operator. A key that is itself a
// whitelisted field is an equality filter even if it ends like a suffix.
func decompose(e *model.Entity, name string) (string, Operator) {
	if e.IsFilterable(name) {
		return name, OpEq
	}
	for _, so := range suffixOps {
		if strings.HasSuffix(name, so.suffix) && len(name) > len(so.suffix) {
			return strings.TrimSuffix(name, so.suffix), so.op
		}
	}
	return name, OpEq
}

func compileFilter(e *model.Entity, key, name string, values []string) (FilterSpec, error) {
	field, op := decompose(e, name)
	if !e.IsFilterable(field) {
		return FilterSpec{}, apperr.InvalidFilterError{
			Param:  key,
			Reason: fmt.Sprintf("field %q is not filterable", field),
		}
	}

	raw := ""
	if len(values) > 0 {
		raw = values[0]
	}
	spec := FilterSpec{Field: field, Operator: op, RawValue: raw}

	switch op {
	case OpEq, OpNotEq:
		spec.Value = raw
	case OpLike:
		spec.Value = "%" + raw + "%"
	case OpGt, OpLt, OpGte, OpLte:
		if strings.TrimSpace(raw) == "" {
			return FilterSpec{}, apperr.InvalidFilterError{Param: key, Reason: "a value is required"}
		}
		spec.Value = castComparable(strings.TrimSpace(raw))
	case OpIn, OpNotIn:
		spec.RawValue = strings.Join(values, ",")
		spec.Values = splitList(values)
		if len(spec.Values) == 0 {
			return FilterSpec{}, apperr.InvalidFilterError{Param: key, Reason: "list is empty"}
		}
	case OpIsNull, OpIsNotNull:
		// presence only
	}
	return spec, nil
}

// castComparable tries integer, float and date before falling back to string.
func castComparable(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if t, err := cast.ToTimeE(raw); err == nil {
		return t
	}
	return raw
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func parseSort(e *model.Entity, values []string) ([]SortSpec, error) {
	raw := strings.TrimSpace(strings.Join(values, ","))
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case SortLatest:
		return []SortSpec{{Field: e.TimestampColumn(), Direction: Desc}}, nil
	case SortOldest:
		return []SortSpec{{Field: e.TimestampColumn(), Direction: Asc}}, nil
	}

	var out []SortSpec
	seen := map[string]bool{}
	for _, seg := range strings.Split(raw, ",") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		field, dirRaw, hasDir := strings.Cut(seg, ":")
		field = strings.TrimSpace(field)
		dir := Asc
		if strings.HasPrefix(field, "-") {
			field = strings.TrimPrefix(field, "-")
			dir = Desc
		}
		if hasDir {
			switch strings.ToLower(strings.TrimSpace(dirRaw)) {
			case "", "asc":
				dir = Asc
			case "desc":
				dir = Desc
			default:
				return nil, apperr.InvalidFilterError{
					Param:  KeySort,
					Reason: fmt.Sprintf("unknown direction %q", dirRaw),
				}
			}
		}
		if field == "" {
			return nil, apperr.InvalidFilterError{Param: KeySort, Reason: "empty sort field"}
		}
		if !e.IsSortable(field) {
			return nil, apperr.InvalidFilterError{
				Param:  KeySort,
				Reason: fmt.Sprintf("field %q is not sortable", field),
			}
		}
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, SortSpec{Field: field, Direction: dir})
	}
	return out, nil
}

func (c *Compiler) parsePagination(params url.Values) (Pagination, error) {
	p := Pagination{Limit: c.DefaultLimit, Page: 1}
	if raw := controlValues(params, KeyLimit); raw != nil {
		n, err := positiveInt(KeyLimit, raw[0])
		if err != nil {
			return Pagination{}, err
		}
		p.Limit = min(n, c.MaxLimit)
	}
	if raw := controlValues(params, KeyPage); raw != nil {
		n, err := positiveInt(KeyPage, raw[0])
		if err != nil {
			return Pagination{}, err
		}
		// offset must fit a signed 64-bit OFFSET
		if p.Limit > 0 && n-1 > math.MaxInt64/p.Limit {
			return Pagination{}, apperr.InvalidFilterError{
				Param:  KeyPage,
				Reason: fmt.Sprintf("page %d is out of range for limit %d", n, p.Limit),
			}
		}
		p.Page = n
	}
	return p, nil
}

// controlValues returns the values of key and its "key[]" form, nil when neither is present.
func controlValues(params url.Values, key string) []string {
	var out []string
	out = append(out, params[key]...)
	out = append(out, params[key+"[]"]...)
	return out
}

func positiveInt(key, raw string) (uint64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return 0, apperr.InvalidFilterError{
			Param:  key,
			Reason: fmt.Sprintf("%q is not a positive integer", raw),
		}
	}
	return uint64(n), nil
}

// relationNames collects declared relations from the given keys; unknown names are dropped.
func relationNames(e *model.Entity, params url.Values, keys ...string) []string {
	var out []string
	seen := map[string]bool{}
	for _, key := range keys {
		for _, name := range splitList(controlValues(params, key)) {
			if seen[name] || e.GetRelation(name) == nil {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
