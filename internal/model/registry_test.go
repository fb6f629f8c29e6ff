package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"YcrudAPI/internal/apperr"

	"github.com/google/go-cmp/cmp"
)

const personYAML = `
table: people
singular: person
fillable: [name, email]
filterable: [name, created_at]
relations:
  orders:
    type: has_many
    model: OrderItem
  company:
    type: belongs_to
    table: companies
resources:
  v2:
    fields:
      - name
      - { source: email, alias: contact }
requests:
  internal.v1:
    rules:
      name: [required]
`

const orderYAML = `
table: order_items
fillable: [total]
`

func loadPair(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.LoadEntity("Person", []byte(personYAML)); err != nil {
		t.Fatalf("load Person: %v", err)
	}
	if err := reg.LoadEntity("OrderItem", []byte(orderYAML)); err != nil {
		t.Fatalf("load OrderItem: %v", err)
	}
	if err := reg.Link(); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := reg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	return reg
}

func TestLoadEntity_DecodesDeclarations(t *testing.T) {
	reg := loadPair(t)
	p, err := reg.Describe("Person")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if p.Name != "Person" || p.SingularName() != "person" || p.PluralName() != "people" {
		t.Fatalf("unexpected names: %q %q %q", p.Name, p.SingularName(), p.PluralName())
	}
	want := []ResourceField{{Source: "name"}, {Source: "email", Alias: "contact"}}
	if diff := cmp.Diff(want, p.Resources["v2"].Fields); diff != "" {
		t.Fatalf("resource fields mismatch (-want +got):\n%s", diff)
	}
	if got := p.Resources["v2"].Fields[1].Key(); got != "contact" {
		t.Fatalf("alias key = %q", got)
	}
	if diff := cmp.Diff([]string{"required"}, p.Requests["internal.v1"].Rules["name"]); diff != "" {
		t.Fatalf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestLink_FillsRelationDefaults(t *testing.T) {
	reg := loadPair(t)
	p, _ := reg.Describe("Person")

	orders := p.GetRelation("orders")
	if orders.GetModelRef() == nil || orders.GetModelRef().Name != "OrderItem" {
		t.Fatalf("orders not linked: %+v", orders)
	}
	if orders.Table != "order_items" || orders.FK != "person_id" || orders.PK != "id" {
		t.Fatalf("unexpected has_many defaults: %+v", orders)
	}

	company := p.GetRelation("company")
	if company.GetModelRef() != nil || !company.IsBelongsTo() {
		t.Fatalf("company should be an unlinked belongs_to: %+v", company)
	}
	if company.FK != "company_id" || company.PK != "id" {
		t.Fatalf("unexpected belongs_to defaults: %+v", company)
	}
}

func TestLink_UnknownModel(t *testing.T) {
	reg := NewRegistry()
	if err := reg.LoadEntity("Person", []byte("table: people\nrelations:\n  pets:\n    type: has_many\n    model: Pet\n")); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := reg.Link(); err == nil {
		t.Fatalf("expected link error for unknown model")
	}
}

func TestLoadEntity_RejectsBadYAML(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "table: people\ncolour: red\n",
		"bad relation type": "table: people\nrelations:\n  x:\n    type: many_to_many\n    table: xs\n",
		"missing table":     "fillable: [name]\n",
		"unknown rel key":   "table: people\nrelations:\n  x:\n    type: has_one\n    table: xs\n    through: ys\n",
		"empty":             "",
	}
	for name, src := range cases {
		reg := NewRegistry()
		if err := reg.LoadEntity("Person", []byte(src)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestValidate_RejectsUnsafeIdentifiers(t *testing.T) {
	cases := []*Entity{
		{Table: "people; drop table x"},
		{Table: "people", Filterable: []string{"name OR 1=1"}},
		{Table: "people", Relations: map[string]*Relation{"orders": {Type: "has_many", Table: "orders", Order: "created_at sideways"}}},
		{Table: "people", Requests: map[string]*RequestDecl{"v0": {}}},
	}
	for i, e := range cases {
		reg := NewRegistry()
		if err := reg.Register("Person", e); err != nil {
			t.Fatalf("case %d: register: %v", i, err)
		}
		if err := reg.Link(); err != nil {
			t.Fatalf("case %d: link: %v", i, err)
		}
		if err := reg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestRegister_DuplicatesAndFreeze(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register("Person", &Entity{Table: "people"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("Person", &Entity{Table: "people"}); err == nil {
		t.Fatalf("expected duplicate type error")
	}
	if err := reg.Register("Human", &Entity{Table: "people"}); err == nil {
		t.Fatalf("expected duplicate resource error")
	}
	reg.Freeze()
	if err := reg.Register("Order", &Entity{Table: "orders"}); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
}

func TestDescribe_UnknownType(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Describe("Ghost")
	var ue apperr.UnknownEntityTypeError
	if !errors.As(err, &ue) || ue.Type != "Ghost" {
		t.Fatalf("expected UnknownEntityTypeError, got %v", err)
	}
	if _, err := reg.ByResource("ghosts"); err == nil {
		t.Fatalf("expected unknown resource error")
	}
}

func TestInitRegistry_FromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Person.yml"), []byte(personYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "OrderItem.yml"), []byte(orderYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := InitRegistry(dir)
	if err != nil {
		t.Fatalf("InitRegistry: %v", err)
	}
	if !reg.Frozen() {
		t.Fatalf("registry should be frozen after init")
	}
	var got []string
	for _, e := range reg.Entities() {
		got = append(got, e.Name)
	}
	if diff := cmp.Diff([]string{"OrderItem", "Person"}, got); diff != "" {
		t.Fatalf("entities mismatch (-want +got):\n%s", diff)
	}
	if e, err := reg.ByResource("order_items"); err != nil || e.SingularName() != "order_item" {
		t.Fatalf("unexpected order_items lookup: %v %v", e, err)
	}
}
