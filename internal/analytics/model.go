// Package analytics records search query outcomes and click-through
// feedback. Events are append-only; a click may be attached to an event
// at most once afterward, identified by the event id. Retention and
// cleanup are the responsibility of an external collaborator.
package analytics

import (
	"time"

	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

// Click holds click-through feedback attached to a search event.
type Click struct {
	ResultID  string            `json:"result_id"`
	Position  int               `json:"position"`
	Kind      search.EntityKind `json:"kind"`
	ClickedAt time.Time         `json:"clicked_at"`
}

// Event is one recorded search outcome.
type Event struct {
	ID          string              `json:"id"`
	Query       string              `json:"query"`
	Kinds       []search.EntityKind `json:"kinds"`
	Filters     map[string]string   `json:"filters,omitempty"`
	ResultCount int                 `json:"result_count"`
	DurationMs  int64               `json:"duration_ms"`
	CallerID    string              `json:"caller_id,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`

	// Click is set at most once after the event is recorded.
	Click *Click `json:"click,omitempty"`
}

// QueryCount pairs a normalized query text with how often it was seen.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}
