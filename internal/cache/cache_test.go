package cache

import (
	"strings"
	"testing"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

func baseQuery() search.Query {
	return search.Query{
		Text:      "dragon sprite",
		Kinds:     []search.EntityKind{search.KindAsset, search.KindCreator},
		Filters:   map[string]string{"type": "sprite", "category": "fantasy"},
		Page:      1,
		PageSize:  20,
		SortBy:    search.SortRelevance,
		SortOrder: search.OrderDesc,
	}
}

func TestKey_Deterministic(t *testing.T) {
	perm := search.PermissionContext{CallerID: "user-1", Role: "creator"}

	k1 := Key(baseQuery(), perm)
	k2 := Key(baseQuery(), perm)
	if k1 != k2 {
		t.Errorf("same query produced different keys: %q vs %q", k1, k2)
	}
	if !strings.HasPrefix(k1, keyPrefix) {
		t.Errorf("key %q missing prefix %q", k1, keyPrefix)
	}
}

func TestKey_FilterOrderIndependent(t *testing.T) {
	q1 := baseQuery()
	q1.Filters = map[string]string{"type": "sprite", "category": "fantasy"}
	q2 := baseQuery()
	q2.Filters = map[string]string{"category": "fantasy", "type": "sprite"}

	perm := search.PermissionContext{}
	if Key(q1, perm) != Key(q2, perm) {
		t.Error("equivalent filter maps produced different keys")
	}
}

func TestKey_VariesWithQuery(t *testing.T) {
	perm := search.PermissionContext{CallerID: "user-1", Role: "creator"}
	base := Key(baseQuery(), perm)

	tests := []struct {
		name   string
		mutate func(*search.Query)
	}{
		{"text", func(q *search.Query) { q.Text = "dragon tileset" }},
		{"kinds", func(q *search.Query) { q.Kinds = []search.EntityKind{search.KindAsset} }},
		{"filter value", func(q *search.Query) { q.Filters["type"] = "tileset" }},
		{"page", func(q *search.Query) { q.Page = 2 }},
		{"page size", func(q *search.Query) { q.PageSize = 50 }},
		{"sort", func(q *search.Query) { q.SortBy = search.SortCreatedAt }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := baseQuery()
			tt.mutate(&q)
			if Key(q, perm) == base {
				t.Errorf("changing %s did not change the key", tt.name)
			}
		})
	}
}

func TestKey_ScopedByCaller(t *testing.T) {
	q := baseQuery()

	anon := Key(q, search.PermissionContext{})
	owner := Key(q, search.PermissionContext{CallerID: "user-1"})
	admin := Key(q, search.PermissionContext{CallerID: "user-1", Role: "admin"})

	if anon == owner {
		t.Error("anonymous and authenticated callers share a key")
	}
	if owner == admin {
		t.Error("different roles share a key")
	}
}

func TestKey_SessionExcluded(t *testing.T) {
	q := baseQuery()

	k1 := Key(q, search.PermissionContext{CallerID: "user-1", SessionID: "sess-a"})
	k2 := Key(q, search.PermissionContext{CallerID: "user-1", SessionID: "sess-b"})
	if k1 != k2 {
		t.Error("session ID leaked into the cache key")
	}
}
