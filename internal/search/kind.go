// Package search implements the unified relevance-ranked search core:
// query normalization, per-candidate scoring, cross-entity aggregation,
// and pagination over candidate sets produced by entity adapters.
package search

import "fmt"

// EntityKind identifies one of the searchable record types.
// The set of kinds is closed; adding a kind requires a new constant,
// an Adapter implementation, and registration in the service.
type EntityKind string

// Known entity kinds.
const (
	KindAsset   EntityKind = "asset"
	KindCreator EntityKind = "creator"
	KindProject EntityKind = "project"
	KindLicense EntityKind = "license"
)

// allKinds lists every known entity kind in canonical order.
var allKinds = []EntityKind{KindAsset, KindCreator, KindProject, KindLicense}

// AllKinds returns a copy of every known entity kind in canonical order.
func AllKinds() []EntityKind {
	kinds := make([]EntityKind, len(allKinds))
	copy(kinds, allKinds)
	return kinds
}

// Valid reports whether k is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindAsset, KindCreator, KindProject, KindLicense:
		return true
	}
	return false
}

// ParseKind converts a string into an EntityKind.
// Returns a *ValidationError for unknown kinds.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.Valid() {
		return "", &ValidationError{
			Field:   "entities",
			Message: fmt.Sprintf("unknown entity kind %q", s),
		}
	}
	return k, nil
}
