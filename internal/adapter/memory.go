package adapter

import (
	"context"
	"sync"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// MemoryRecord is one entry in an in-memory adapter: a candidate plus
// the attribute values its filters match against.
type MemoryRecord struct {
	Candidate  search.Candidate
	Attributes map[string]string
	OwnerID    string
}

// InMemoryAdapter is an in-memory search.Adapter implementation.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryAdapter struct {
	kind search.EntityKind

	mu      sync.RWMutex
	records []MemoryRecord
}

// NewInMemoryAdapter creates an empty in-memory adapter for the kind.
func NewInMemoryAdapter(kind search.EntityKind) *InMemoryAdapter {
	return &InMemoryAdapter{kind: kind}
}

// Add appends records to the adapter's candidate universe.
func (a *InMemoryAdapter) Add(records ...MemoryRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, records...)
}

// Kind implements search.Adapter.
func (a *InMemoryAdapter) Kind() search.EntityKind {
	return a.kind
}

// Search applies the same visibility model as the Postgres adapters:
// non-admin callers see approved records plus their own, and recognized
// filters must match the record's attributes exactly.
func (a *InMemoryAdapter) Search(ctx context.Context, filters map[string]string, perm search.PermissionContext, cap int) ([]search.Candidate, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var matched []search.Candidate
	total := 0
	for _, rec := range a.records {
		if !visible(rec, perm) {
			continue
		}
		if !matchesFilters(rec, filters) {
			continue
		}
		total++
		if len(matched) < cap {
			matched = append(matched, rec.Candidate)
		}
	}
	return matched, total, nil
}

func visible(rec MemoryRecord, perm search.PermissionContext) bool {
	if perm.Admin() {
		return true
	}
	if rec.Candidate.Quality.Approved {
		return true
	}
	return perm.CallerID != "" && rec.OwnerID == perm.CallerID
}

func matchesFilters(rec MemoryRecord, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := rec.Attributes[key]
		if !ok {
			// Unrecognized filter keys are ignored, matching the SQL
			// adapters' whitelist behavior.
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}
