package itests

import (
	"testing"

	"YcrudAPI/internal/artifact"
	"YcrudAPI/internal/model"
	"YcrudAPI/internal/resolver"
)

// The shipped descriptors must load, link and bind without a database.
func TestRegistrySanity(t *testing.T) {
	dir, err := modelsDir()
	if err != nil {
		t.Fatalf("models dir: %v", err)
	}
	reg, err := model.InitRegistry(dir)
	if err != nil {
		t.Fatalf("InitRegistry failed: %v", err)
	}

	person, err := reg.ByResource("people")
	if err != nil {
		t.Fatalf("people resource: %v", err)
	}
	orders := person.GetRelation("orders")
	if orders == nil || orders.GetModelRef() == nil || orders.GetModelRef().Name != "Order" {
		t.Fatalf("Person.orders not linked to Order: %+v", orders)
	}
	if orders.FK != "person_id" || orders.PK != "id" || orders.Table != "orders" {
		t.Fatalf("unexpected Person.orders keys: %+v", orders)
	}

	order, err := reg.Describe("Order")
	if err != nil {
		t.Fatalf("describe Order: %v", err)
	}
	back := order.GetRelation("person")
	if back == nil || !back.IsBelongsTo() || back.FK != "person_id" || back.PK != "id" {
		t.Fatalf("unexpected Order.person: %+v", back)
	}

	cat := artifact.NewCatalog()
	if err := artifact.RegisterDeclared(cat, reg); err != nil {
		t.Fatalf("RegisterDeclared: %v", err)
	}
	res := resolver.New(reg, cat)
	if err := res.Warm([]int{1, 2, 3}); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	v1, err := res.Resolve(resolver.Request{Entity: "Person", Version: 1, Internal: true})
	if err != nil {
		t.Fatalf("Resolve v1: %v", err)
	}
	if v1.FilterRef != "Filter.v1.PersonFilter" || v1.ValidatorRef != "Requests.v1.PersonRequest" {
		t.Fatalf("internal v1 should downgrade to the public declarations: %+v", v1)
	}

	// v3 has no declarations and falls back to the defaults
	v3, err := res.Resolve(resolver.Request{Entity: "Person", Version: 3})
	if err != nil {
		t.Fatalf("Resolve v3: %v", err)
	}
	if v3.SerializerRef != artifact.DefaultSerializerRef || v3.ValidatorRef != artifact.DefaultValidatorRef {
		t.Fatalf("v3 should use the generic defaults: %+v", v3)
	}
	if v3.Filter != nil || v3.FilterRef != "" {
		t.Fatalf("v3 should have no filter: %+v", v3)
	}
}
