package search

import (
	"sort"
	"strings"
)

// Pagination describes the page window of a search response.
type Pagination struct {
	Page            int  `json:"page"`
	PageSize        int  `json:"pageSize"`
	Total           int  `json:"total"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Facets reports aggregate counts independent of pagination.
// EntityCounts holds, per requested kind, the total matching count
// reported by that kind's adapter, not just the page-visible subset.
type Facets struct {
	EntityCounts map[EntityKind]int `json:"entityCounts"`
}

// Aggregate merges scored results from all successful adapters, sorts
// them per the query's directive, and cuts the requested page. The page
// window is applied only after the full merge-and-sort so a result's
// global rank is never distorted by its entity kind.
func Aggregate(results []ScoredResult, q Query, totals map[EntityKind]int) ([]ScoredResult, Pagination, Facets) {
	sortResults(results, q)

	total := len(results)
	totalPages := 0
	if q.PageSize > 0 {
		totalPages = (total + q.PageSize - 1) / q.PageSize
	}

	skip := (q.Page - 1) * q.PageSize
	if skip > total {
		skip = total
	}
	end := skip + q.PageSize
	if end > total {
		end = total
	}
	page := results[skip:end]

	pagination := Pagination{
		Page:            q.Page,
		PageSize:        q.PageSize,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     q.Page < totalPages,
		HasPreviousPage: q.Page > 1 && total > 0,
	}

	counts := make(map[EntityKind]int, len(q.Kinds))
	for _, kind := range q.Kinds {
		counts[kind] = totals[kind]
	}

	return page, pagination, Facets{EntityCounts: counts}
}

// sortResults orders results in place. Relevance sorts by composite
// score descending; field sorts bypass the score for ordering but the
// scores stay attached. Every ordering breaks ties by creation time
// descending, then entity id ascending, for full determinism.
func sortResults(results []ScoredResult, q Query) {
	asc := q.SortOrder == OrderAsc

	var less func(a, b *ScoredResult) bool
	switch q.SortBy {
	case SortCreatedAt:
		less = func(a, b *ScoredResult) bool {
			if !a.CreatedAt.Equal(b.CreatedAt) {
				if asc {
					return a.CreatedAt.Before(b.CreatedAt)
				}
				return a.CreatedAt.After(b.CreatedAt)
			}
			return tieBreak(a, b)
		}
	case SortTitle:
		less = func(a, b *ScoredResult) bool {
			at, bt := strings.ToLower(a.Title), strings.ToLower(b.Title)
			if at != bt {
				if asc {
					return at < bt
				}
				return at > bt
			}
			return tieBreak(a, b)
		}
	default: // relevance
		less = func(a, b *ScoredResult) bool {
			if a.Score != b.Score {
				if asc {
					return a.Score < b.Score
				}
				return a.Score > b.Score
			}
			return tieBreak(a, b)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return less(&results[i], &results[j])
	})
}

// tieBreak orders by creation time descending, then id ascending.
func tieBreak(a, b *ScoredResult) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID < b.ID
}
