package search

import "context"

// PermissionContext carries the caller identity an adapter needs to
// apply visibility rules. A zero value means an anonymous caller who
// sees only approved, non-deleted records.
type PermissionContext struct {
	// CallerID identifies the authenticated caller, empty for anonymous.
	CallerID string

	// Role is the caller's role ("admin" widens visibility).
	Role string

	// SessionID ties analytics events to a client session. Optional.
	SessionID string
}

// Admin reports whether the caller has the admin role.
func (p PermissionContext) Admin() bool {
	return p.Role == "admin"
}

// Adapter fetches a permission-filtered, structurally-filtered candidate
// set for one entity kind. Implementations must apply the caller's
// visibility rules before candidates are returned; the core never
// re-derives permissions. The int return is the total matching count
// used for facets, which may exceed the number of candidates when the
// cap truncates the set.
type Adapter interface {
	Kind() EntityKind
	Search(ctx context.Context, filters map[string]string, perm PermissionContext, cap int) ([]Candidate, int, error)
}
