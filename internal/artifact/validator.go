package artifact

import (
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"YcrudAPI/internal/apperr"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// BaseRequest is the generic validator: it accepts any input.
type BaseRequest struct{}

func (BaseRequest) Validate(Action, map[string]any) error { return nil }

type rule struct {
	name string
	arg  string
	num  float64
	set  []string
}

type fieldRules struct {
	field string
	rules []rule
}

// RuleValidator checks input against per-field rule lists such as
// ["required", "string", "max:120"]. Each failing field yields one message.
type RuleValidator struct {
	fields []fieldRules
}

// NewRuleValidator parses the rule lists. Unknown rules are a construction error.
func NewRuleValidator(rules map[string][]string) (*RuleValidator, error) {
	names := make([]string, 0, len(rules))
	for field := range rules {
		names = append(names, field)
	}
	sort.Strings(names)

	v := &RuleValidator{fields: make([]fieldRules, 0, len(names))}
	for _, field := range names {
		fr := fieldRules{field: field}
		for _, raw := range rules[field] {
			r, err := parseRule(raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			fr.rules = append(fr.rules, r)
		}
		v.fields = append(v.fields, fr)
	}
	return v, nil
}

func parseRule(raw string) (rule, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(raw), ":")
	r := rule{name: name, arg: arg}
	switch name {
	case "required", "string", "numeric", "integer", "boolean", "email", "uuid", "date", "nullable":
		if arg != "" {
			return r, fmt.Errorf("rule %q takes no argument", name)
		}
	case "min", "max":
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return r, fmt.Errorf("rule %q needs a numeric argument", name)
		}
		r.num = n
	case "in":
		for _, item := range strings.Split(arg, ",") {
			if item = strings.TrimSpace(item); item != "" {
				r.set = append(r.set, item)
			}
		}
		if len(r.set) == 0 {
			return r, fmt.Errorf("rule %q needs at least one value", name)
		}
	default:
		return r, fmt.Errorf("unknown rule %q", name)
	}
	return r, nil
}

func (v *RuleValidator) Validate(action Action, input map[string]any) error {
	verr := apperr.ValidationError{}
	for _, fr := range v.fields {
		value, present := input[fr.field]
		if action == ActionUpdate && !present {
			// partial update: absent keys keep their stored value
			continue
		}
		if msg := checkField(fr, value, present); msg != "" {
			verr = verr.Append(msg)
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func checkField(fr fieldRules, value any, present bool) string {
	blank := !present || isBlank(value)
	for _, r := range fr.rules {
		if r.name == "required" {
			if blank {
				return fr.field + " is required"
			}
			continue
		}
		if blank {
			// optional rules only apply to supplied values
			continue
		}
		if msg := checkRule(fr.field, r, value); msg != "" {
			return msg
		}
	}
	return ""
}

func checkRule(field string, r rule, value any) string {
	switch r.name {
	case "nullable":
	case "string":
		if _, ok := value.(string); !ok {
			return field + " must be a string"
		}
	case "numeric":
		if _, ok := toNumber(value); !ok {
			return field + " must be a number"
		}
	case "integer":
		n, ok := toNumber(value)
		if !ok || n != math.Trunc(n) {
			return field + " must be an integer"
		}
	case "boolean":
		switch b := value.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(b); err != nil {
				return field + " must be true or false"
			}
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			if n, err := cast.ToFloat64E(b); err != nil || (n != 0 && n != 1) {
				return field + " must be true or false"
			}
		default:
			return field + " must be true or false"
		}
	case "email":
		s, ok := value.(string)
		if !ok {
			return field + " must be a valid email address"
		}
		if addr, err := mail.ParseAddress(s); err != nil || addr.Address != s {
			return field + " must be a valid email address"
		}
	case "uuid":
		s, ok := value.(string)
		if !ok {
			return field + " must be a valid UUID"
		}
		if _, err := uuid.Parse(s); err != nil {
			return field + " must be a valid UUID"
		}
	case "date":
		if _, err := cast.ToTimeE(value); err != nil {
			return field + " must be a valid date"
		}
	case "min":
		if size, ok := measure(value); ok && size < r.num {
			return fmt.Sprintf("%s must be at least %s", field, r.arg)
		}
	case "max":
		if size, ok := measure(value); ok && size > r.num {
			return fmt.Sprintf("%s may not be greater than %s", field, r.arg)
		}
	case "in":
		s := fmt.Sprint(value)
		for _, allowed := range r.set {
			if s == allowed {
				return ""
			}
		}
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(r.set, ", "))
	}
	return ""
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	}
	return false
}

func toNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case bool:
		return 0, false
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return n, err == nil
	}
	n, err := cast.ToFloat64E(value)
	return n, err == nil
}

// measure is string length for strings, the value itself for numbers.
func measure(value any) (float64, bool) {
	switch v := value.(type) {
	case string:
		return float64(utf8.RuneCountInString(v)), true
	case []any:
		return float64(len(v)), true
	}
	return toNumber(value)
}
