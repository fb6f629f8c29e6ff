package model

import "testing"

func TestParseScope(t *testing.T) {
	cases := []struct {
		key  string
		want Scope
		ok   bool
	}{
		{"v1", Scope{Version: 1}, true},
		{"internal.v3", Scope{Internal: true, Version: 3}, true},
		{"Internal.v2", Scope{Internal: true, Version: 2}, true},
		{"v0", Scope{}, false},
		{"1", Scope{}, false},
		{"internal.", Scope{}, false},
	}
	for _, c := range cases {
		got, err := ParseScope(c.key)
		if (err == nil) != c.ok {
			t.Fatalf("ParseScope(%q) err = %v, want ok=%v", c.key, err, c.ok)
		}
		if c.ok && got != c.want {
			t.Fatalf("ParseScope(%q) = %+v, want %+v", c.key, got, c.want)
		}
	}
}

func TestEntity_FilterableFallback(t *testing.T) {
	e := &Entity{Table: "people", Fillable: []string{"name"}, Timestamps: true, Hidden: []string{"password"}}
	for _, f := range []string{"name", "public_id", "created_at", "updated_at"} {
		if !e.IsFilterable(f) {
			t.Fatalf("%s should be filterable by default", f)
		}
	}
	if e.IsFilterable("password") || !e.IsHidden("password") {
		t.Fatalf("password must be hidden and not filterable")
	}

	explicit := &Entity{Table: "people", Filterable: []string{"age"}, Timestamp: "born_at"}
	if explicit.IsFilterable("name") || !explicit.IsSortable("born_at") || explicit.IsSortable("created_at") {
		t.Fatalf("explicit whitelist must replace the defaults")
	}
}

func TestEntity_Names(t *testing.T) {
	cases := map[string]string{
		"categories": "category",
		"boxes":      "box",
		"classes":    "class",
		"orders":     "order",
		"people":     "people",
	}
	for table, want := range cases {
		e := &Entity{Table: table}
		if got := e.SingularName(); got != want {
			t.Fatalf("SingularName(%q) = %q, want %q", table, got, want)
		}
	}
	e := &Entity{Table: "orders", PublicIDPrefix: "ord"}
	if e.IDPrefix() != "ord" || e.KeyColumn() != "id" || e.PublicIDColumn() != "public_id" {
		t.Fatalf("unexpected defaults: %q %q %q", e.IDPrefix(), e.KeyColumn(), e.PublicIDColumn())
	}
}

func TestRecord_CloneIsShallowCopy(t *testing.T) {
	r := Record{"name": "Ann"}
	c := r.Clone()
	c["name"] = "Bob"
	if r.Get("name") != "Ann" {
		t.Fatalf("clone must not alias the original")
	}
	var nilRec Record
	if nilRec.Get("x") != nil {
		t.Fatalf("nil record Get should be nil")
	}
}
