package artifact

import (
	"errors"
	"net/url"
	"testing"

	"YcrudAPI/internal/apperr"
	"YcrudAPI/internal/model"

	"github.com/google/go-cmp/cmp"
)

func person() *model.Entity {
	return &model.Entity{
		Name:         "Person",
		Table:        "people",
		UUIDColumn:   "uuid",
		TenantColumn: "company_uuid",
		Hidden:       []string{"password"},
	}
}

func TestRef(t *testing.T) {
	cases := []struct {
		kind     Kind
		internal bool
		version  int
		want     string
	}{
		{KindSerializer, false, 1, "Resources.v1.Person"},
		{KindSerializer, true, 2, "Resources.Internal.v2.Person"},
		{KindValidator, false, 1, "Requests.v1.PersonRequest"},
		{KindFilter, true, 3, "Filter.Internal.v3.PersonFilter"},
	}
	for _, c := range cases {
		got := Ref(c.kind, c.internal, c.version, "Person")
		if got != c.want {
			t.Fatalf("Ref = %q, want %q", got, c.want)
		}
	}
	if got := StripInternal("Filter.Internal.v3.PersonFilter"); got != "Filter.v3.PersonFilter" {
		t.Fatalf("StripInternal = %q", got)
	}
}

func TestBaseResource_PublicAndInternal(t *testing.T) {
	s := NewBaseResource(person())
	rec := model.Record{
		"id":           int64(7),
		"public_id":    "person_abc",
		"uuid":         "u-1",
		"company_uuid": "c-1",
		"owner_uuid":   "o-1",
		"password":     "secret",
		"name":         "Ann",
	}

	pub, err := s.Serialize(CallContext{Version: 1}, rec)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"id": "person_abc", "name": "Ann"}, pub); diff != "" {
		t.Fatalf("public shape mismatch (-want +got):\n%s", diff)
	}

	internal, err := s.Serialize(CallContext{Version: 1, Internal: true}, rec)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	want := map[string]any{
		"id":           int64(7),
		"public_id":    "person_abc",
		"uuid":         "u-1",
		"company_uuid": "c-1",
		"owner_uuid":   "o-1",
		"name":         "Ann",
	}
	if diff := cmp.Diff(want, internal); diff != "" {
		t.Fatalf("internal shape mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldResource_AliasesAndMissing(t *testing.T) {
	s := NewFieldResource([]model.ResourceField{{Source: "name"}, {Source: "email", Alias: "contact"}, {Source: "nickname"}})
	got, _ := s.Serialize(CallContext{}, model.Record{"name": "Ann", "email": "a@x.io", "age": 3})
	want := map[string]any{"name": "Ann", "contact": "a@x.io", "nickname": nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("field resource mismatch (-want +got):\n%s", diff)
	}
}

func TestRuleValidator_Messages(t *testing.T) {
	v, err := NewRuleValidator(map[string][]string{
		"name":   {"required", "string", "max:5"},
		"email":  {"email"},
		"age":    {"integer", "min:18"},
		"status": {"in:new,paid"},
		"id":     {"uuid"},
		"born":   {"date"},
		"admin":  {"boolean"},
	})
	if err != nil {
		t.Fatalf("NewRuleValidator: %v", err)
	}

	err = v.Validate(ActionCreate, map[string]any{
		"name":   "Annabel",
		"email":  "Ann <ann@x.io>",
		"age":    int64(12),
		"status": "lost",
		"id":     "nope",
		"born":   "yesterday-ish",
		"admin":  "maybe",
	})
	var verr apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{
		"admin must be true or false",
		"age must be at least 18",
		"born must be a valid date",
		"email must be a valid email address",
		"id must be a valid UUID",
		"name may not be greater than 5",
		"status must be one of new, paid",
	}
	if diff := cmp.Diff(want, verr.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestRuleValidator_PartialUpdateAndOptional(t *testing.T) {
	v, err := NewRuleValidator(map[string][]string{
		"name":  {"required", "string"},
		"email": {"email"},
	})
	if err != nil {
		t.Fatalf("NewRuleValidator: %v", err)
	}
	if err := v.Validate(ActionUpdate, map[string]any{"email": "ann@x.io"}); err != nil {
		t.Fatalf("absent keys must be skipped on update: %v", err)
	}
	if err := v.Validate(ActionUpdate, map[string]any{"name": ""}); err == nil {
		t.Fatalf("blank required field on update must fail")
	}
	if err := v.Validate(ActionCreate, map[string]any{"name": "Ann", "email": ""}); err != nil {
		t.Fatalf("optional blank field must pass: %v", err)
	}
}

func TestNewRuleValidator_RejectsUnknownRules(t *testing.T) {
	for _, rules := range []map[string][]string{
		{"name": {"shiny"}},
		{"age": {"min:lots"}},
		{"status": {"in:"}},
		{"name": {"required:yes"}},
	} {
		if _, err := NewRuleValidator(rules); err == nil {
			t.Fatalf("expected construction error for %v", rules)
		}
	}
}

func TestParamFilter_Predicates(t *testing.T) {
	f, err := NewParamFilter(map[string]string{
		"older_than": "main.age > ?",
		"adult":      "main.age >= 18",
	})
	if err != nil {
		t.Fatalf("NewParamFilter: %v", err)
	}
	if diff := cmp.Diff([]string{"adult", "older_than"}, f.Params()); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}

	preds, err := f.Predicates(CallContext{}, url.Values{"older_than": {"40"}, "name": {"x"}})
	if err != nil {
		t.Fatalf("Predicates: %v", err)
	}
	if len(preds) != 1 {
		t.Fatalf("expected one predicate, got %d", len(preds))
	}
	sqlStr, args, err := preds[0].ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if sqlStr != "main.age > ?" || len(args) != 1 || args[0] != "40" {
		t.Fatalf("unexpected predicate %q %v", sqlStr, args)
	}

	for raw, want := range map[string]int{"": 1, "1": 1, "true": 1, "false": 0, "0": 0} {
		preds, err := f.Predicates(CallContext{}, url.Values{"adult": {raw}})
		if err != nil {
			t.Fatalf("Predicates: %v", err)
		}
		if len(preds) != want {
			t.Fatalf("adult=%q: got %d predicates, want %d", raw, len(preds), want)
		}
	}

	if _, err := NewParamFilter(map[string]string{"bad name": "x = 1"}); err == nil {
		t.Fatalf("expected invalid parameter error")
	}
	if _, err := NewParamFilter(map[string]string{"empty": "  "}); err == nil {
		t.Fatalf("expected empty predicate error")
	}
}

func TestCatalog_DuplicatesAndNilFactories(t *testing.T) {
	c := NewCatalog()
	if !c.Has(KindSerializer, DefaultSerializerRef) || !c.Has(KindValidator, DefaultValidatorRef) {
		t.Fatalf("defaults must be registered")
	}
	if c.Has(KindFilter, "") {
		t.Fatalf("filters have no default")
	}
	if err := c.RegisterSerializer(DefaultSerializerRef, nil); err == nil {
		t.Fatalf("expected duplicate registration error")
	}

	ref := Ref(KindFilter, false, 1, "Person")
	if err := c.RegisterFilter(ref, func(*model.Entity) (Filter, error) { return nil, nil }); err != nil {
		t.Fatalf("RegisterFilter: %v", err)
	}
	if _, err := c.Build(KindFilter, ref, person()); err == nil {
		t.Fatalf("nil factory result must be an error")
	}
	if _, err := c.Build(KindValidator, "Requests.v9.Ghost", person()); err == nil {
		t.Fatalf("unregistered ref must be an error")
	}
}

func TestRegisterDeclared(t *testing.T) {
	reg := model.NewRegistry()
	e := &model.Entity{
		Table: "people",
		Resources: map[string]*model.ResourceDecl{
			"internal.v2": {Fields: []model.ResourceField{{Source: "name"}}},
		},
		Requests: map[string]*model.RequestDecl{
			"v1": {Rules: map[string][]string{"name": {"required"}}},
		},
		Filters: map[string]*model.FilterDecl{
			"v1": {Params: map[string]string{"adult": "main.age >= 18"}},
		},
	}
	if err := reg.Register("Person", e); err != nil {
		t.Fatalf("register: %v", err)
	}

	c := NewCatalog()
	if err := RegisterDeclared(c, reg); err != nil {
		t.Fatalf("RegisterDeclared: %v", err)
	}
	for _, probe := range []struct {
		kind Kind
		ref  string
	}{
		{KindSerializer, "Resources.Internal.v2.Person"},
		{KindValidator, "Requests.v1.PersonRequest"},
		{KindFilter, "Filter.v1.PersonFilter"},
	} {
		if !c.Has(probe.kind, probe.ref) {
			t.Fatalf("%s %s not registered", probe.kind, probe.ref)
		}
		if _, err := c.Build(probe.kind, probe.ref, e); err != nil {
			t.Fatalf("build %s: %v", probe.ref, err)
		}
	}
}

func TestRuleValidator_BooleanAcceptsZeroAndOne(t *testing.T) {
	v, err := NewRuleValidator(map[string][]string{"active": {"boolean"}})
	if err != nil {
		t.Fatalf("NewRuleValidator: %v", err)
	}
	for _, ok := range []any{true, "false", "1", int64(1), int64(0), float64(1)} {
		if err := v.Validate(ActionCreate, map[string]any{"active": ok}); err != nil {
			t.Fatalf("active=%#v: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []any{int64(2), float64(0.5), "maybe"} {
		if err := v.Validate(ActionCreate, map[string]any{"active": bad}); err == nil {
			t.Fatalf("active=%#v: expected validation error", bad)
		}
	}
}
