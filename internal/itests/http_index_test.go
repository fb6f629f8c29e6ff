package itests

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestIndex_People(t *testing.T) {
	requireServer(t)

	status, out := call(t, http.MethodGet, "/api/v1/people", nil, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}
	items := asList(t, out)
	if len(items) < 3 {
		t.Fatalf("expected at least 3 people, got %d", len(items))
	}
	for _, it := range items {
		id, _ := it["id"].(string)
		if !strings.HasPrefix(id, "person_") {
			t.Fatalf("public id expected in id, got %v", it["id"])
		}
		if _, leaked := it["uuid"]; leaked {
			t.Fatalf("uuid must not be exposed publicly: %v", it)
		}
	}
}

func TestIndex_FiltersSortAndPage(t *testing.T) {
	requireServer(t)

	status, out := call(t, http.MethodGet, "/api/v1/people", url.Values{
		"age_gte": {"18"},
		"sort":    {"-age"},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}
	if diff := cmp.Diff([]string{"Cid", "Ann"}, names(asList(t, out))); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}

	status, out = call(t, http.MethodGet, "/api/v1/people", url.Values{
		"name_in": {"Ann,Bob,Cid"},
		"sort":    {"name:asc"},
		"limit":   {"1"},
		"page":    {"2"},
	}, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}
	if diff := cmp.Diff([]string{"Bob"}, names(asList(t, out))); diff != "" {
		t.Fatalf("unexpected page (-want +got):\n%s", diff)
	}
}

func TestIndex_DeclaredFilterAndSearch(t *testing.T) {
	requireServer(t)

	status, out := call(t, http.MethodGet, "/api/v1/people", url.Values{"older_than": {"40"}}, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}
	if diff := cmp.Diff([]string{"Cid"}, names(asList(t, out))); diff != "" {
		t.Fatalf("unexpected names (-want +got):\n%s", diff)
	}

	status, out = call(t, http.MethodGet, "/api/v1/people/search", url.Values{"q": {"CORP"}}, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}
	if diff := cmp.Diff([]string{"Cid"}, names(asList(t, out))); diff != "" {
		t.Fatalf("unexpected search hits (-want +got):\n%s", diff)
	}
}

func TestIndex_VersionedSerializer(t *testing.T) {
	requireServer(t)

	status, out := call(t, http.MethodGet, "/api/v2/people", url.Values{"name": {"Ann"}}, "")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", status, out)
	}
	want := []map[string]any{{"name": "Ann", "contact": "ann@example.com", "id": "person_ann0001"}}
	if diff := cmp.Diff(want, asList(t, out)); diff != "" {
		t.Fatalf("unexpected v2 shape (-want +got):\n%s", diff)
	}
}

func TestIndex_InvalidParams(t *testing.T) {
	requireServer(t)

	for _, params := range []url.Values{
		{"sort": {"uuid"}},
		{"limit": {"0"}},
		{"age_gt": {""}},
	} {
		status, out := call(t, http.MethodGet, "/api/v1/people", params, "")
		if status != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d: %v", params, status, out)
		}
	}
}
