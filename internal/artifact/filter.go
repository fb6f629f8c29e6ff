package artifact

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"YcrudAPI/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/spf13/cast"
)

// ParamFilter maps request parameters to SQL predicates. Every "?" in a
// predicate is bound to the parameter value. A predicate without "?" is a
// switch: present turns it on, a false value ("false", "0") turns it off.
type ParamFilter struct {
	params []string
	exprs  map[string]string
}

// NewParamFilter validates parameter names and predicates.
func NewParamFilter(params map[string]string) (*ParamFilter, error) {
	f := &ParamFilter{exprs: make(map[string]string, len(params))}
	for name, expr := range params {
		if !model.IsIdentifier(name) {
			return nil, fmt.Errorf("invalid filter parameter %q", name)
		}
		expr = strings.TrimSpace(expr)
		if expr == "" {
			return nil, fmt.Errorf("filter parameter %q has an empty predicate", name)
		}
		f.params = append(f.params, name)
		f.exprs[name] = expr
	}
	sort.Strings(f.params)
	return f, nil
}

func (f *ParamFilter) Params() []string {
	return f.params
}

func (f *ParamFilter) Predicates(_ CallContext, params url.Values) ([]squirrel.Sqlizer, error) {
	var out []squirrel.Sqlizer
	for _, name := range f.params {
		if !params.Has(name) {
			continue
		}
		value := params.Get(name)
		expr := f.exprs[name]
		n := strings.Count(expr, "?")
		if n == 0 && isOff(value) {
			continue
		}
		args := make([]any, n)
		for i := range args {
			args[i] = value
		}
		out = append(out, squirrel.Expr(expr, args...))
	}
	return out, nil
}

func isOff(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	on, err := cast.ToBoolE(value)
	return err == nil && !on
}
